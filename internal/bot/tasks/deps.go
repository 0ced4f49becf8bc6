// Package tasks implements memebot's scheduled tasks, their dependencies and
// their registration.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/memebot/internal/config"
	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/memebot"
)

// Awards finds and announces the best post of a window.
type Awards interface {
	BestPost(ctx context.Context, window string) (memebot.ChatMessage, error)
	Announce(ctx context.Context, resp memebot.Response) error
	Messages() memebot.Messages
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Awards Awards
	Config *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
