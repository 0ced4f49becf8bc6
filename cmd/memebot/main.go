// Package main contains the entrypoint for the GroupMe memebot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgard/memebot/internal/bot"
	"github.com/edgard/memebot/internal/bot/handlers"
	"github.com/edgard/memebot/internal/bot/tasks"
	"github.com/edgard/memebot/internal/config"
	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/groupme"
	"github.com/edgard/memebot/internal/logger"
	"github.com/edgard/memebot/internal/meme"
	"github.com/edgard/memebot/internal/memebot"
	"github.com/edgard/memebot/internal/metrics"
	"github.com/edgard/memebot/internal/resilience"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components (config, logger, db, GroupMe, meme source,
// dispatcher, HTTP router, scheduler), runs until ctx is cancelled and returns
// the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	runTask := flag.String("run-task", "", "Run the named scheduled task once and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gm, err := groupme.NewClient(cfg.GroupMe.Token,
		groupme.WithBaseURL(cfg.GroupMe.BaseURL),
		groupme.WithHTTPClient(&http.Client{Timeout: cfg.GroupMe.Timeout}),
		groupme.WithLogger(log),
	)
	if err != nil {
		log.Error("Failed to create GroupMe client", "error", err)
		return 1
	}

	group, err := gm.ResolveGroup(ctx, cfg.GroupMe.GroupID, cfg.GroupMe.GroupName)
	if err != nil {
		log.Error("Failed to resolve group", "group_id", cfg.GroupMe.GroupID, "group_name", cfg.GroupMe.GroupName, "error", err)
		return 1
	}
	log.Info("Resolved group", "group_id", group.ID, "group_name", group.Name)

	if err := ensureMembership(ctx, log, gm, group.ID); err != nil {
		log.Error("Failed to ensure group membership", "group_id", group.ID, "error", err)
		return 1
	}

	collector := metrics.NewCollector()

	memes := meme.NewClient(meme.Config{
		Endpoint:  cfg.Meme.Endpoint,
		Timeout:   cfg.Meme.Timeout,
		AllowNSFW: cfg.Meme.AllowNSFW,
		Retry: resilience.RetryConfig{
			MaxAttempts:     cfg.Meme.Attempts,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
		},
		Breaker: resilience.BreakerConfig{
			MaxFailures: cfg.Meme.Breaker.MaxFailures,
			OpenTimeout: cfg.Meme.Breaker.OpenTimeout,
			OnStateChange: func(_, _, to string) {
				if to == "open" {
					collector.CollaboratorFailure("meme_api_breaker_open")
				}
			},
		},
	}, nil, log)

	dispatcher := memebot.NewDispatcher(memebot.Config{
		GroupID:   group.ID,
		BotID:     cfg.GroupMe.BotID,
		Trigger:   cfg.Memebot.Trigger,
		Threshold: cfg.Memebot.Threshold,
		Messages: memebot.Messages{
			LowConfidence: cfg.Memebot.Messages.LowConfidence,
			BestPost:      cfg.Memebot.Messages.BestPost,
			NoPosts:       cfg.Memebot.Messages.NoPosts,
			Awards:        cfg.Memebot.Messages.Awards,
			GeneralError:  cfg.Memebot.Messages.GeneralError,
		},
	}, groupme.NewPlatform(gm), memes, log)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Awards: dispatcher,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), collector)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	if *runTask != "" {
		if err := sched.RunNow(ctx, *runTask); err != nil {
			log.Error("Failed to run task", "task_name", *runTask, "error", err)
			return 1
		}
		return 0
	}

	// Resolve the bot once up front so a misconfigured bot id shows at startup.
	if b, err := dispatcher.Bot(ctx); err != nil {
		log.Warn("Bot not found in group yet, will retry on first command", "bot_id", cfg.GroupMe.BotID, "error", err)
	} else {
		log.Info("Resolved bot", "bot_id", b.ID, "bot_name", b.Name)
	}

	router := handlers.NewRouter(handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    collector,
		GroupID:    group.ID,
	})
	app := bot.NewBot(log, cfg, router, sched)

	log.Info("Starting memebot...", "addr", cfg.Server.Addr)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

// ensureMembership rejoins groupID when the token owner has left it.
func ensureMembership(ctx context.Context, log *slog.Logger, gm *groupme.Client, groupID string) error {
	member, ok, err := gm.Membership(ctx, groupID)
	if err != nil {
		return err
	}
	if ok {
		log.Debug("Already a member of group", "group_id", groupID, "member_id", member.ID)
		return nil
	}

	log.Info("Not a member of group, rejoining", "group_id", groupID)
	if err := gm.Rejoin(ctx, groupID); err != nil {
		return err
	}
	if _, ok, err = gm.Membership(ctx, groupID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("still not a member of group %s after rejoining", groupID)
	}
	return nil
}
