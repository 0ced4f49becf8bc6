package memebot

import (
	"fmt"
	"strings"
)

// Messages holds the reply templates. Templates are fmt format strings; the
// comment on each field lists its arguments.
type Messages struct {
	// LowConfidence: score (int), trigger (string).
	LowConfidence string
	// BestPost: window, author, likes (int), text.
	BestPost string
	// NoPosts: window.
	NoPosts string
	// Awards: best-post text.
	Awards string
	// GeneralError is posted when a collaborator fails. Empty means no reply.
	GeneralError string
}

// DefaultMessages returns the built-in reply templates.
func DefaultMessages() Messages {
	return Messages{
		LowConfidence: "I'm not sure what you said (confidence is only %d%%). Try saying '%s help'",
		BestPost:      "Best post of the last %s by %s with %d likes:\n%s",
		NoPosts:       "No posts found in the last %s.",
		Awards:        "MEME AWARDS\n%s",
		GeneralError:  "Something went wrong, try again in a bit.",
	}
}

// HelpText lists the trigger keyword and every recognized command.
func HelpText(trigger string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tell me what to do by sending the message %s <command>, where <command> can be:\n", trigger)
	sb.WriteString("* meme: I'll send a meme\n")
	sb.WriteString("* help: I'll say this message again\n")
	fmt.Fprintf(&sb, "* %s: I'll return the most liked post over that time interval.", strings.Join(WindowNames(), "/"))
	return sb.String()
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	if m.LowConfidence == "" {
		m.LowConfidence = def.LowConfidence
	}
	if m.BestPost == "" {
		m.BestPost = def.BestPost
	}
	if m.NoPosts == "" {
		m.NoPosts = def.NoPosts
	}
	if m.Awards == "" {
		m.Awards = def.Awards
	}
	return m
}

func (m Messages) lowConfidence(score int, trigger string) Response {
	return Response{Text: fmt.Sprintf(m.LowConfidence, score, trigger)}
}

// BestPostResponse formats the winner of a window, carrying its attachments.
func (m Messages) BestPostResponse(window string, msg ChatMessage) Response {
	return Response{
		Text:        fmt.Sprintf(m.BestPost, window, msg.AuthorName, msg.Likes(), msg.Text),
		Attachments: msg.Attachments,
	}
}

// NoPostsResponse explains that a window was empty.
func (m Messages) NoPostsResponse(window string) Response {
	return Response{Text: fmt.Sprintf(m.NoPosts, window)}
}

// AwardsResponse wraps a best-post response in the awards banner.
func (m Messages) AwardsResponse(window string, msg ChatMessage) Response {
	resp := m.BestPostResponse(window, msg)
	resp.Text = fmt.Sprintf(m.Awards, resp.Text)
	return resp
}
