package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/memebot/internal/config"
	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/memebot"
	"github.com/edgard/memebot/internal/metrics"
)

// Dispatcher handles the text of one chat message.
type Dispatcher interface {
	Handle(ctx context.Context, text string) memebot.Outcome
}

// HandlerDeps provides dependencies for the HTTP handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Dispatcher Dispatcher
	Metrics    *metrics.Collector
	// GroupID is the resolved id of the group the bot serves.
	GroupID string
}
