package groupme

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound matches an APIError with status 404.
var ErrNotFound = errors.New("groupme: not found")

// APIError is a non-success response from the GroupMe API.
type APIError struct {
	StatusCode int
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("groupme: status %d", e.StatusCode)
	}
	return fmt.Sprintf("groupme: status %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

// Is reports whether target is ErrNotFound and the status was 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Meta     struct {
		Code   int      `json:"code"`
		Errors []string `json:"errors"`
	} `json:"meta"`
}

// Group is a GroupMe group. Members is only populated by GetGroup.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// Member is a group membership.
type Member struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// User is the account owning the API token.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Bot is a bot registered by the token owner.
type Bot struct {
	BotID       string `json:"bot_id"`
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	CallbackURL string `json:"callback_url"`
}

// Message is a message from group history.
type Message struct {
	ID          string       `json:"id"`
	CreatedAt   int64        `json:"created_at"`
	UserID      string       `json:"user_id"`
	GroupID     string       `json:"group_id"`
	Name        string       `json:"name"`
	Text        string       `json:"text"`
	System      bool         `json:"system"`
	SenderType  string       `json:"sender_type"`
	FavoritedBy []string     `json:"favorited_by"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is a message attachment. Attachments decoded from the API keep
// their original encoding in Raw and are re-encoded from it verbatim.
type Attachment struct {
	Type      string          `json:"type"`
	URL       string          `json:"url,omitempty"`
	SourceURL string          `json:"source_url,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw bytes.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	type plain Attachment
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Attachment(v)
	a.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits Raw when present.
func (a Attachment) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}
	type plain Attachment
	return json.Marshal(plain(a))
}

type messagesPage struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

type botPost struct {
	BotID       string       `json:"bot_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
