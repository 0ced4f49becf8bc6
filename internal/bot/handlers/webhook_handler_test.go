package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/memebot/internal/config"
	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/logger"
	"github.com/edgard/memebot/internal/memebot"
	"github.com/edgard/memebot/internal/metrics"
)

type fakeStore struct {
	mu      sync.Mutex
	seen    map[string]bool
	markErr error
	pingErr error
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) MarkMessageHandled(_ context.Context, msg database.HandledMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[msg.MessageID] {
		return false, nil
	}
	s.seen[msg.MessageID] = true
	return true, nil
}

func (s *fakeStore) PruneHandledMessages(context.Context, time.Time) (int64, error) { return 0, nil }
func (s *fakeStore) SaveAward(context.Context, *database.Award) error { return nil }
func (s *fakeStore) LastAward(context.Context, string) (*database.Award, error) { return nil, nil }
func (s *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

type fakeDispatcher struct {
	mu          sync.Mutex
	texts       []string
	outcome     memebot.Outcome
	hadDeadline bool
	ctxErr      error
}

func (d *fakeDispatcher) Handle(ctx context.Context, text string) memebot.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	_, d.hadDeadline = ctx.Deadline()
	d.ctxErr = ctx.Err()
	if d.outcome == "" {
		return memebot.OutcomeMeme
	}
	return d.outcome
}

func (d *fakeDispatcher) Texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

type testEnv struct {
	router     http.Handler
	store      *fakeStore
	dispatcher *fakeDispatcher
	metrics    *metrics.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      &fakeStore{},
		dispatcher: &fakeDispatcher{},
		metrics:    metrics.NewCollector(),
	}
	env.router = NewRouter(HandlerDeps{
		Logger:     logger.Discard(),
		Config:     &config.Config{Server: config.ServerConfig{HandleTimeout: 5 * time.Second}},
		Store:      env.store,
		Dispatcher: env.dispatcher,
		Metrics:    env.metrics,
		GroupID:    "59823729",
	})
	return env
}

func (e *testEnv) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestWebhookHandlesUserMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.post(t, `{"id":"1","text":"memebot meme","sender_id":"u1","sender_type":"user","name":"Alice","group_id":"59823729"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, []string{"memebot meme"}, env.dispatcher.Texts())
	assert.True(t, env.dispatcher.hadDeadline)
	assert.NoError(t, env.dispatcher.ctxErr)

	scraped := env.scrape(t)
	assert.Contains(t, scraped, `memebot_webhook_requests_total{result="handled"} 1`)
	assert.Contains(t, scraped, `memebot_commands_total{outcome="meme"} 1`)
}

func TestWebhookIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		result string
	}{
		{name: "bot sender", body: `{"id":"1","text":"memebot meme","sender_type":"bot","group_id":"59823729"}`, result: metrics.ResultSender},
		{name: "system sender", body: `{"id":"2","text":"Alice joined","sender_type":"system","group_id":"59823729"}`, result: metrics.ResultSender},
		{name: "system flag", body: `{"id":"3","text":"memebot meme","sender_type":"user","system":true,"group_id":"59823729"}`, result: metrics.ResultSender},
		{name: "other group", body: `{"id":"4","text":"memebot meme","sender_type":"user","group_id":"14970560"}`, result: metrics.ResultGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			rec := env.post(t, tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())
			assert.Empty(t, env.dispatcher.Texts())
			assert.Contains(t, env.scrape(t), `memebot_webhook_requests_total{result="`+tt.result+`"} 1`)
		})
	}
}

func TestWebhookDeduplicates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body := `{"id":"42","text":"memebot help","sender_type":"user","group_id":"59823729"}`
	require.Equal(t, http.StatusOK, env.post(t, body).Code)
	require.Equal(t, http.StatusOK, env.post(t, body).Code)

	assert.Equal(t, []string{"memebot help"}, env.dispatcher.Texts())
	assert.Contains(t, env.scrape(t), `memebot_webhook_requests_total{result="duplicate"} 1`)
}

func TestWebhookHandlesWhenStoreFails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.store.markErr = errors.New("disk full")

	rec := env.post(t, `{"id":"7","text":"memebot week","sender_type":"user","group_id":"59823729"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"memebot week"}, env.dispatcher.Texts())
	assert.Contains(t, env.scrape(t), `memebot_collaborator_failures_total{collaborator="store"} 1`)
}

func TestWebhookCountsCollaboratorFailures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.dispatcher.outcome = memebot.OutcomeMemeFailed

	require.Equal(t, http.StatusOK, env.post(t, `{"id":"8","text":"memebot meme","sender_type":"user","group_id":"59823729"}`).Code)

	scraped := env.scrape(t)
	assert.Contains(t, scraped, `memebot_commands_total{outcome="meme_failed"} 1`)
	assert.Contains(t, scraped, `memebot_collaborator_failures_total{collaborator="meme_api"} 1`)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "not json", `{"text":`} {
		env := newTestEnv(t)
		rec := env.post(t, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Empty(t, env.dispatcher.Texts())
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body := `{"text":"` + strings.Repeat("a", maxCallbackBytes) + `"}`
	rec := env.post(t, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.dispatcher.Texts())
}

func TestWebhookOnlyAcceptsPost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	env.store.pingErr = errors.New("closed")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
