package memebot

import "errors"

var (
	// ErrNoTrigger reports text without the trigger keyword. Such messages are
	// ignored without a reply.
	ErrNoTrigger = errors.New("trigger keyword not found")

	// ErrUnknownWindow reports a window name missing from the catalog.
	ErrUnknownWindow = errors.New("unknown time window")

	// ErrNoPostsFound reports an empty window. The accompanying Response is
	// still valid and should be posted.
	ErrNoPostsFound = errors.New("no posts found in window")

	// ErrBotNotFound reports that the configured bot is not registered in the group.
	ErrBotNotFound = errors.New("bot not found in group")
)
