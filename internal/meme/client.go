// Package meme fetches random memes from a meme-api compatible endpoint.
package meme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/memebot/internal/memebot"
	"github.com/edgard/memebot/internal/resilience"
)

// DefaultEndpoint returns one random meme per request.
const DefaultEndpoint = "https://meme-api.com/gimme"

const maxBody = 1 << 20

var (
	// ErrMalformed is returned when the endpoint answers with something that is
	// not a usable meme.
	ErrMalformed = errors.New("meme: malformed response")
	// ErrNSFW is returned when only NSFW memes were offered and they are not allowed.
	ErrNSFW = errors.New("meme: nsfw meme rejected")
)

// Config configures a Client.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	AllowNSFW bool
	// Retry bounds how many memes are requested before giving up on NSFW
	// memes or transient failures.
	Retry   resilience.RetryConfig
	Breaker resilience.BreakerConfig
}

type payload struct {
	URL       string `json:"url"`
	PostLink  string `json:"postLink"`
	Title     string `json:"title"`
	Subreddit string `json:"subreddit"`
	NSFW      bool   `json:"nsfw"`
}

// Client implements memebot.MemeSource.
type Client struct {
	endpoint   string
	allowNSFW  bool
	retry      resilience.RetryConfig
	httpClient *http.Client
	breaker    *resilience.Breaker
	logger     *slog.Logger
}

// NewClient creates a meme client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "meme")

	bc := cfg.Breaker
	if bc.Name == "" {
		bc.Name = "meme-api"
	}
	if bc.CallTimeout <= 0 {
		bc.CallTimeout = cfg.Timeout
	}
	if bc.Logger == nil {
		bc.Logger = logger
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		allowNSFW:  cfg.AllowNSFW,
		retry:      cfg.Retry,
		httpClient: httpClient,
		breaker:    resilience.NewBreaker(bc),
		logger:     logger,
	}
}

// Fetch returns a random meme. NSFW memes are skipped unless allowed.
func (c *Client) Fetch(ctx context.Context) (memebot.Meme, error) {
	var m memebot.Meme
	err := resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		var p payload
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			p, err = c.get(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if p.NSFW && !c.allowNSFW {
			c.logger.DebugContext(ctx, "Skipping NSFW meme", "subreddit", p.Subreddit)
			return ErrNSFW
		}
		m = memebot.Meme{URL: p.URL, PostLink: p.PostLink, Title: p.Title, Subreddit: p.Subreddit}
		return nil
	})
	if err != nil {
		return memebot.Meme{}, fmt.Errorf("fetching meme: %w", err)
	}
	return m, nil
}

// State reports the circuit breaker state.
func (c *Client) State() string {
	return c.breaker.State()
}

func (c *Client) get(ctx context.Context) (payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return payload{}, resilience.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return payload{}, fmt.Errorf("meme endpoint returned status %d", resp.StatusCode)
	}

	var p payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&p); err != nil {
		return payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.URL == "" {
		return payload{}, fmt.Errorf("%w: missing url", ErrMalformed)
	}
	return p, nil
}
