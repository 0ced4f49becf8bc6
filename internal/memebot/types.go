package memebot

import (
	"context"
	"encoding/json"
	"iter"
	"time"
)

// Attachment is a chat attachment. Raw holds the attachment exactly as the
// platform delivered it, so attachments read from history are posted back
// unchanged; URL and SourceURL are used when Raw is empty.
type Attachment struct {
	Type      string
	URL       string
	SourceURL string
	Raw       json.RawMessage
}

// ImageAttachment builds an image attachment pointing at url.
func ImageAttachment(url, sourceURL string) Attachment {
	return Attachment{Type: "image", URL: url, SourceURL: sourceURL}
}

// ChatMessage is a message read from group history.
type ChatMessage struct {
	ID          string
	Text        string
	AuthorName  string
	CreatedAt   time.Time
	FavoritedBy []string
	Attachments []Attachment
}

// Likes returns the number of users who favorited the message.
func (m ChatMessage) Likes() int {
	return len(m.FavoritedBy)
}

// Response is a reply to post into the group.
type Response struct {
	Text        string
	Attachments []Attachment
}

// Bot is a bot registered in a group.
type Bot struct {
	ID      string
	GroupID string
	Name    string
}

// Meme is a meme record from the meme-image source.
type Meme struct {
	URL       string
	PostLink  string
	Title     string
	Subreddit string
}

// Platform is the messaging-platform collaborator.
type Platform interface {
	// ListBots returns the bots registered in a group.
	ListBots(ctx context.Context, groupID string) ([]Bot, error)
	// Messages returns the group history lazily, newest first.
	Messages(ctx context.Context, groupID string) iter.Seq2[ChatMessage, error]
	// Post sends resp into the group as the given bot.
	Post(ctx context.Context, botID string, resp Response) error
}

// MemeSource fetches random memes.
type MemeSource interface {
	Fetch(ctx context.Context) (Meme, error)
}
