package memebot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Outcome describes how Handle finished.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeLowConfidence  Outcome = "low_confidence"
	OutcomeMeme           Outcome = "meme"
	OutcomeHelp           Outcome = "help"
	OutcomeBestPost       Outcome = "best_post"
	OutcomeNoPosts        Outcome = "no_posts"
	OutcomeBotUnavailable Outcome = "bot_unavailable"
	OutcomeMemeFailed     Outcome = "meme_failed"
	OutcomeHistoryFailed  Outcome = "history_failed"
	OutcomePostFailed     Outcome = "post_failed"
	OutcomeInternalError  Outcome = "internal_error"
)

// Config configures a Dispatcher.
type Config struct {
	GroupID   string
	BotID     string
	Trigger   string
	Threshold int
	Messages  Messages
	// Now defaults to time.Now.
	Now func() time.Time
}

// Dispatcher recognizes commands in inbound text and posts replies.
// It is safe for concurrent use.
type Dispatcher struct {
	cfg      Config
	platform Platform
	memes    MemeSource
	logger   *slog.Logger

	mu      sync.Mutex
	bot     *Bot
	resolve singleflight.Group
}

// NewDispatcher creates a Dispatcher. Empty Trigger, zero Threshold and empty
// templates (other than GeneralError) fall back to the defaults.
func NewDispatcher(cfg Config, platform Platform, memes MemeSource, logger *slog.Logger) *Dispatcher {
	if cfg.Trigger == "" {
		cfg.Trigger = DefaultTrigger
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Messages = cfg.Messages.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		cfg:      cfg,
		platform: platform,
		memes:    memes,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Messages returns the reply templates in use.
func (d *Dispatcher) Messages() Messages {
	return d.cfg.Messages
}

// Handle processes one inbound message text. The caller must drop messages
// sent by bots. Failures are logged and reported through the Outcome only.
func (d *Dispatcher) Handle(ctx context.Context, text string) Outcome {
	log := d.logger

	result, err := Match(text, d.cfg.Trigger, vocabulary)
	if err != nil {
		log.DebugContext(ctx, "Ignoring message without trigger keyword")
		return OutcomeIgnored
	}
	log.DebugContext(ctx, "Matched command", "word", result.Word, "confidence", result.Confidence)

	bot, err := d.Bot(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve bot, not replying", "error", err, "group_id", d.cfg.GroupID)
		return OutcomeBotUnavailable
	}

	if result.Confidence < d.cfg.Threshold {
		log.InfoContext(ctx, "Match confidence below threshold", "word", result.Word, "confidence", result.Confidence)
		return d.reply(ctx, bot, d.cfg.Messages.lowConfidence(result.Confidence, d.cfg.Trigger), OutcomeLowConfidence)
	}

	cmd, err := Classify(result.Word)
	if err != nil {
		log.ErrorContext(ctx, "Matched word has no command", "error", err, "word", result.Word)
		return OutcomeInternalError
	}

	switch c := cmd.(type) {
	case SendMeme:
		return d.sendMeme(ctx, bot)
	case SendHelp:
		return d.reply(ctx, bot, Response{Text: HelpText(d.cfg.Trigger)}, OutcomeHelp)
	case BestPost:
		return d.sendBestPost(ctx, bot, c.Window)
	default:
		log.ErrorContext(ctx, "Unhandled command type", "command", fmt.Sprintf("%T", cmd))
		return OutcomeInternalError
	}
}

func (d *Dispatcher) sendMeme(ctx context.Context, bot Bot) Outcome {
	meme, err := d.memes.Fetch(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to fetch meme", "error", err)
		d.fail(ctx, bot)
		return OutcomeMemeFailed
	}
	resp := Response{
		Text:        meme.Title,
		Attachments: []Attachment{ImageAttachment(meme.URL, meme.PostLink)},
	}
	d.logger.InfoContext(ctx, "Sending meme", "subreddit", meme.Subreddit, "url", meme.URL)
	return d.reply(ctx, bot, resp, OutcomeMeme)
}

func (d *Dispatcher) sendBestPost(ctx context.Context, bot Bot, window string) Outcome {
	msg, err := d.BestPost(ctx, window)
	switch {
	case errors.Is(err, ErrNoPostsFound):
		d.logger.InfoContext(ctx, "No posts in window", "window", window)
		return d.reply(ctx, bot, d.cfg.Messages.NoPostsResponse(window), OutcomeNoPosts)
	case errors.Is(err, ErrUnknownWindow):
		d.logger.ErrorContext(ctx, "Best post requested for unknown window", "error", err)
		return OutcomeInternalError
	case err != nil:
		d.logger.ErrorContext(ctx, "Failed to scan message history", "error", err, "window", window)
		d.fail(ctx, bot)
		return OutcomeHistoryFailed
	}
	d.logger.InfoContext(ctx, "Found best post", "window", window, "message_id", msg.ID, "likes", msg.Likes())
	return d.reply(ctx, bot, d.cfg.Messages.BestPostResponse(window, msg), OutcomeBestPost)
}

// BestPost returns the most liked message of the group within window.
func (d *Dispatcher) BestPost(ctx context.Context, window string) (ChatMessage, error) {
	return FindBest(d.platform.Messages(ctx, d.cfg.GroupID), window, d.cfg.Now())
}

// Announce posts resp into the group as the configured bot.
func (d *Dispatcher) Announce(ctx context.Context, resp Response) error {
	bot, err := d.Bot(ctx)
	if err != nil {
		return err
	}
	if err := d.platform.Post(ctx, bot.ID, resp); err != nil {
		return fmt.Errorf("posting as bot %s: %w", bot.ID, err)
	}
	return nil
}

// Bot resolves the configured bot in the group. A successful lookup is cached
// for the life of the Dispatcher; concurrent first calls share one lookup.
func (d *Dispatcher) Bot(ctx context.Context) (Bot, error) {
	d.mu.Lock()
	if d.bot != nil {
		b := *d.bot
		d.mu.Unlock()
		return b, nil
	}
	d.mu.Unlock()

	v, err, _ := d.resolve.Do(d.cfg.BotID, func() (any, error) {
		d.mu.Lock()
		cached := d.bot
		d.mu.Unlock()
		if cached != nil {
			return *cached, nil
		}

		bots, err := d.platform.ListBots(ctx, d.cfg.GroupID)
		if err != nil {
			return nil, fmt.Errorf("listing bots: %w", err)
		}
		for _, b := range bots {
			if b.ID == d.cfg.BotID {
				d.mu.Lock()
				d.bot = &b
				d.mu.Unlock()
				return b, nil
			}
		}
		return nil, fmt.Errorf("%w: bot %s, group %s", ErrBotNotFound, d.cfg.BotID, d.cfg.GroupID)
	})
	if err != nil {
		return Bot{}, err
	}
	return v.(Bot), nil
}

func (d *Dispatcher) reply(ctx context.Context, bot Bot, resp Response, outcome Outcome) Outcome {
	if err := d.platform.Post(ctx, bot.ID, resp); err != nil {
		d.logger.ErrorContext(ctx, "Failed to post reply", "error", err, "bot_id", bot.ID, "outcome", outcome)
		return OutcomePostFailed
	}
	d.logger.DebugContext(ctx, "Posted reply", "bot_id", bot.ID, "outcome", outcome, "attachments", len(resp.Attachments))
	return outcome
}

func (d *Dispatcher) fail(ctx context.Context, bot Bot) {
	if d.cfg.Messages.GeneralError == "" {
		return
	}
	if err := d.platform.Post(ctx, bot.ID, Response{Text: d.cfg.Messages.GeneralError}); err != nil {
		d.logger.ErrorContext(ctx, "Failed to post error notice", "error", err, "bot_id", bot.ID)
	}
}
