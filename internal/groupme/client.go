// Package groupme is a small client for the GroupMe v3 REST API covering the
// groups, bots, members and messages endpoints used by memebot.
package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the GroupMe v3 API root.
const DefaultBaseURL = "https://api.groupme.com/v3"

const (
	pageSize        = 100
	maxErrorBody    = 1024
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 10 * 1024 * 1024
)

var errNotModified = errors.New("groupme: not modified")

// Client talks to the GroupMe API with an access token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a GroupMe client.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("groupme access token cannot be empty")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "groupme")
	return c, nil
}

// ListGroups returns every group the token owner belongs to.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var all []Group
	for page := 1; ; page++ {
		q := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(pageSize)},
			"omit":     {"memberships"},
		}
		var groups []Group
		if err := c.do(ctx, http.MethodGet, "/groups", q, nil, &groups); err != nil {
			return nil, fmt.Errorf("listing groups (page %d): %w", page, err)
		}
		all = append(all, groups...)
		if len(groups) < pageSize {
			return all, nil
		}
	}
}

// GetGroup returns a group with its members.
func (c *Client) GetGroup(ctx context.Context, groupID string) (Group, error) {
	var g Group
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID), nil, nil, &g); err != nil {
		return Group{}, fmt.Errorf("getting group %s: %w", groupID, err)
	}
	return g, nil
}

// GroupByName returns the first group named exactly name.
func (c *Client) GroupByName(ctx context.Context, name string) (Group, bool, error) {
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return Group{}, false, err
	}
	for _, g := range groups {
		if g.Name == name {
			return g, true, nil
		}
	}
	return Group{}, false, nil
}

// ResolveGroup looks a group up by id, or by name when id is empty.
func (c *Client) ResolveGroup(ctx context.Context, id, name string) (Group, error) {
	if id != "" {
		return c.GetGroup(ctx, id)
	}
	g, ok, err := c.GroupByName(ctx, name)
	if err != nil {
		return Group{}, err
	}
	if !ok {
		return Group{}, fmt.Errorf("%w: no group named %q", ErrNotFound, name)
	}
	return g, nil
}

// ListBots returns the token owner's bots registered in groupID.
func (c *Client) ListBots(ctx context.Context, groupID string) ([]Bot, error) {
	var bots []Bot
	if err := c.do(ctx, http.MethodGet, "/bots", nil, nil, &bots); err != nil {
		return nil, fmt.Errorf("listing bots: %w", err)
	}
	inGroup := bots[:0]
	for _, b := range bots {
		if b.GroupID == groupID {
			inGroup = append(inGroup, b)
		}
	}
	return inGroup, nil
}

// Me returns the token owner.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return User{}, fmt.Errorf("getting current user: %w", err)
	}
	return u, nil
}

// Membership returns the token owner's membership in groupID. The boolean is
// false when the owner is not a member.
func (c *Client) Membership(ctx context.Context, groupID string) (Member, bool, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return Member{}, false, err
	}
	g, err := c.GetGroup(ctx, groupID)
	if errors.Is(err, ErrNotFound) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, err
	}
	for _, m := range g.Members {
		if m.UserID == me.ID {
			return m, true, nil
		}
	}
	return Member{}, false, nil
}

// Rejoin rejoins a group the token owner has left.
func (c *Client) Rejoin(ctx context.Context, groupID string) error {
	body := map[string]string{"group_id": groupID}
	if err := c.do(ctx, http.MethodPost, "/groups/join", nil, body, nil); err != nil {
		return fmt.Errorf("rejoining group %s: %w", groupID, err)
	}
	return nil
}

// PostBotMessage posts text and attachments as a bot.
func (c *Client) PostBotMessage(ctx context.Context, botID, text string, attachments []Attachment) error {
	body := botPost{BotID: botID, Text: text, Attachments: attachments}
	if err := c.do(ctx, http.MethodPost, "/bots/post", nil, body, nil); err != nil {
		return fmt.Errorf("posting as bot %s: %w", botID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.token)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "GroupMe request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNotModified {
		return errNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var env envelope
		if json.Unmarshal(raw, &env) == nil && len(env.Meta.Errors) > 0 {
			apiErr.Errors = env.Meta.Errors
		} else if len(raw) > 0 {
			apiErr.Errors = []string{string(raw)}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
