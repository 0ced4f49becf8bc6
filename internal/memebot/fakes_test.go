package memebot

import (
	"context"
	"iter"
	"sync"
	"time"
)

type fakePlatform struct {
	mu sync.Mutex

	bots      []Bot
	botsErr   error
	listCalls int

	messages   []ChatMessage
	historyErr error
	yielded    int

	posts   []Response
	postErr error
}

func (f *fakePlatform) ListBots(_ context.Context, _ string) ([]Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.bots, f.botsErr
}

func (f *fakePlatform) Messages(_ context.Context, _ string) iter.Seq2[ChatMessage, error] {
	return func(yield func(ChatMessage, error) bool) {
		if f.historyErr != nil {
			yield(ChatMessage{}, f.historyErr)
			return
		}
		for _, m := range f.messages {
			f.mu.Lock()
			f.yielded++
			f.mu.Unlock()
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (f *fakePlatform) Post(_ context.Context, _ string, resp Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, resp)
	return nil
}

func (f *fakePlatform) Posts() []Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Response(nil), f.posts...)
}

type fakeMemes struct {
	meme  Meme
	err   error
	calls int
}

func (f *fakeMemes) Fetch(context.Context) (Meme, error) {
	f.calls++
	return f.meme, f.err
}

func feedOf(msgs ...ChatMessage) iter.Seq2[ChatMessage, error] {
	return func(yield func(ChatMessage, error) bool) {
		for _, m := range msgs {
			if !yield(m, nil) {
				return
			}
		}
	}
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) time.Time {
	return testNow.Add(-d)
}
