package groupme

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/memebot/internal/memebot"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeResponse(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"response": v, "meta": map[string]any{"code": 200}}))
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestListBotsFiltersByGroup(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bots", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		writeResponse(t, w, []Bot{
			{BotID: "a", GroupID: "1", Name: "memebot"},
			{BotID: "b", GroupID: "2", Name: "other"},
		})
	}))

	bots, err := c.ListBots(t.Context(), "1")
	require.NoError(t, err)
	assert.Equal(t, []Bot{{BotID: "a", GroupID: "1", Name: "memebot"}}, bots)
}

func TestMessagesPaginatesLazily(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/groups/42/messages", r.URL.Path)
		before := r.URL.Query().Get("before_id")

		start := 1000
		if before != "" {
			n, err := strconv.Atoi(before)
			require.NoError(t, err)
			start = n - 1
		}
		if start <= 800 {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		var msgs []Message
		for id := start; id > start-pageSize; id-- {
			msgs = append(msgs, Message{ID: strconv.Itoa(id), CreatedAt: int64(id)})
		}
		writeResponse(t, w, messagesPage{Count: 300, Messages: msgs})
	}))

	var seen int
	for m, err := range c.Messages(t.Context(), "42") {
		require.NoError(t, err)
		seen++
		if m.ID == "950" {
			break
		}
	}
	assert.Equal(t, 51, seen)
	assert.Equal(t, int32(1), requests.Load())

	requests.Store(0)
	seen = 0
	for _, err := range c.Messages(t.Context(), "42") {
		require.NoError(t, err)
		seen++
	}
	assert.Equal(t, 200, seen)
	assert.Equal(t, int32(3), requests.Load())
}

func TestMessagesYieldsError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"meta":{"code":500,"errors":["internal"]}}`)
	}))

	var errs []error
	for _, err := range c.Messages(t.Context(), "42") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var apiErr *APIError
	require.ErrorAs(t, errs[0], &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, []string{"internal"}, apiErr.Errors)
}

func TestGetGroupNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetGroup(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMembershipAndRejoin(t *testing.T) {
	var rejoined atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		writeResponse(t, w, User{ID: "u1", Name: "Owner"})
	})
	mux.HandleFunc("GET /groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		members := []Member{{ID: "m2", UserID: "u2"}}
		if r.PathValue("id") == "in" || rejoined.Load() {
			members = append(members, Member{ID: "m1", UserID: "u1", Nickname: "Owner"})
		}
		writeResponse(t, w, Group{ID: r.PathValue("id"), Name: "Test", Members: members})
	})
	mux.HandleFunc("POST /groups/join", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "out", body["group_id"])
		rejoined.Store(true)
		writeResponse(t, w, map[string]any{})
	})
	c := newTestClient(t, mux)

	m, ok, err := c.Membership(t.Context(), "in")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "m1", m.ID)

	_, ok, err = c.Membership(t.Context(), "out")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Rejoin(t.Context(), "out"))
	_, ok, err = c.Membership(t.Context(), "out")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveGroupByName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups", r.URL.Path)
		assert.Equal(t, "memberships", r.URL.Query().Get("omit"))
		writeResponse(t, w, []Group{{ID: "1", Name: "Steak Philly"}, {ID: "2", Name: "Testgroup"}})
	}))

	g, err := c.ResolveGroup(t.Context(), "", "Testgroup")
	require.NoError(t, err)
	assert.Equal(t, "2", g.ID)

	_, err = c.ResolveGroup(t.Context(), "", "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlatformPostKeepsAttachments(t *testing.T) {
	bodies := make(chan []byte, 1)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bots/post", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		bodies <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	p := NewPlatform(c)

	err := p.Post(t.Context(), "bot-1", memebot.Response{
		Text: "hi",
		Attachments: []memebot.Attachment{
			memebot.ImageAttachment("https://i.redd.it/x.png", "https://redd.it/abc"),
			{Type: "location", Raw: json.RawMessage(`{"type":"location","lat":"1","lng":"2","name":"home"}`)},
		},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(<-bodies, &got))
	assert.Equal(t, "bot-1", got["bot_id"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, []any{
		map[string]any{"type": "image", "url": "https://i.redd.it/x.png", "source_url": "https://redd.it/abc"},
		map[string]any{"type": "location", "lat": "1", "lng": "2", "name": "home"},
	}, got["attachments"])
}

func TestPlatformMessagesConvertsHistory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("before_id") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":{"count":1,"messages":[{"id":"9","created_at":1700000000,"name":"Alice","text":null,
			"favorited_by":["1","2"],"attachments":[{"type":"image","url":"https://i.groupme.com/a"}]}]}}`)
	}))
	p := NewPlatform(c)

	var msgs []memebot.ChatMessage
	for m, err := range p.Messages(t.Context(), "42") {
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	require.Len(t, msgs, 1)
	assert.Equal(t, "9", msgs[0].ID)
	assert.Equal(t, "", msgs[0].Text)
	assert.Equal(t, "Alice", msgs[0].AuthorName)
	assert.Equal(t, 2, msgs[0].Likes())
	assert.Equal(t, int64(1700000000), msgs[0].CreatedAt.Unix())
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "https://i.groupme.com/a", msgs[0].Attachments[0].URL)
	assert.JSONEq(t, `{"type":"image","url":"https://i.groupme.com/a"}`, string(msgs[0].Attachments[0].Raw))
}
