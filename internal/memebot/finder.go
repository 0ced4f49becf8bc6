package memebot

import (
	"fmt"
	"iter"
	"time"
)

// FindBest scans feed, which must be ordered newest first, and returns the
// message with the most favorites posted within window of now. The scan stops
// at the first message older than the window. On equal counts the more recent
// message wins. It returns ErrNoPostsFound when no message falls inside the
// window and ErrUnknownWindow when window is not in the catalog.
func FindBest(feed iter.Seq2[ChatMessage, error], window string, now time.Time) (ChatMessage, error) {
	span, ok := LookupWindow(window)
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: %q", ErrUnknownWindow, window)
	}

	var (
		best  ChatMessage
		found bool
	)
	for msg, err := range feed {
		if err != nil {
			return ChatMessage{}, fmt.Errorf("reading message history: %w", err)
		}
		if now.Sub(msg.CreatedAt) > span {
			break
		}
		if !found || msg.Likes() > best.Likes() {
			best = msg
			found = true
		}
	}

	if !found {
		return ChatMessage{}, fmt.Errorf("%w: last %s", ErrNoPostsFound, window)
	}
	return best, nil
}
