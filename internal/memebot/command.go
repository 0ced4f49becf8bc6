package memebot

import "fmt"

// Fixed command words recognized besides the window names.
const (
	WordMeme = "meme"
	WordHelp = "help"
)

// DefaultTrigger is the keyword that must appear in a message for it to be a command.
const DefaultTrigger = "memebot"

// DefaultThreshold is the minimum confidence for a match to count as a command.
const DefaultThreshold = 70

var vocabulary = append([]string{WordMeme, WordHelp}, WindowNames()...)

// Vocabulary returns the recognized command words in declaration order:
// meme, help, then every window name. The order drives match tie-breaking.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Command is a recognized action. The concrete types are SendMeme, SendHelp
// and BestPost.
type Command interface {
	command()
}

// SendMeme fetches a meme and posts it.
type SendMeme struct{}

// SendHelp posts the usage message.
type SendHelp struct{}

// BestPost posts the most liked message of a window.
type BestPost struct {
	Window string
}

func (SendMeme) command() {}
func (SendHelp) command() {}
func (BestPost) command() {}

// Classify maps a vocabulary word to its command. Words outside the
// vocabulary are reported with ErrUnknownWindow, since every non-fixed word is
// expected to be a window name.
func Classify(word string) (Command, error) {
	switch word {
	case WordMeme:
		return SendMeme{}, nil
	case WordHelp:
		return SendHelp{}, nil
	}
	if _, ok := LookupWindow(word); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, word)
	}
	return BestPost{Window: word}, nil
}
