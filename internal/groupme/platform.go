package groupme

import (
	"context"
	"iter"
	"time"

	"github.com/edgard/memebot/internal/memebot"
)

// Platform adapts a Client to memebot.Platform.
type Platform struct {
	client *Client
}

// NewPlatform wraps client.
func NewPlatform(client *Client) *Platform {
	return &Platform{client: client}
}

// ListBots implements memebot.Platform.
func (p *Platform) ListBots(ctx context.Context, groupID string) ([]memebot.Bot, error) {
	bots, err := p.client.ListBots(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]memebot.Bot, 0, len(bots))
	for _, b := range bots {
		out = append(out, memebot.Bot{ID: b.BotID, GroupID: b.GroupID, Name: b.Name})
	}
	return out, nil
}

// Messages implements memebot.Platform.
func (p *Platform) Messages(ctx context.Context, groupID string) iter.Seq2[memebot.ChatMessage, error] {
	return func(yield func(memebot.ChatMessage, error) bool) {
		for m, err := range p.client.Messages(ctx, groupID) {
			if err != nil {
				yield(memebot.ChatMessage{}, err)
				return
			}
			if !yield(toChatMessage(m), nil) {
				return
			}
		}
	}
}

// Post implements memebot.Platform.
func (p *Platform) Post(ctx context.Context, botID string, resp memebot.Response) error {
	attachments := make([]Attachment, 0, len(resp.Attachments))
	for _, a := range resp.Attachments {
		attachments = append(attachments, Attachment{Type: a.Type, URL: a.URL, SourceURL: a.SourceURL, Raw: a.Raw})
	}
	return p.client.PostBotMessage(ctx, botID, resp.Text, attachments)
}

func toChatMessage(m Message) memebot.ChatMessage {
	out := memebot.ChatMessage{
		ID:          m.ID,
		Text:        m.Text,
		AuthorName:  m.Name,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
		FavoritedBy: m.FavoritedBy,
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, memebot.Attachment{Type: a.Type, URL: a.URL, SourceURL: a.SourceURL, Raw: a.Raw})
	}
	return out
}
