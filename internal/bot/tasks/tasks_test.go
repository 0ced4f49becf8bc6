package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/memebot/internal/config"
	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/logger"
	"github.com/edgard/memebot/internal/memebot"
)

var testNow = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeAwards struct {
	mu        sync.Mutex
	best      memebot.ChatMessage
	bestErr   error
	postErr   error
	announced []memebot.Response
}

func (a *fakeAwards) BestPost(context.Context, string) (memebot.ChatMessage, error) {
	return a.best, a.bestErr
}

func (a *fakeAwards) Announce(_ context.Context, resp memebot.Response) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.postErr != nil {
		return a.postErr
	}
	a.announced = append(a.announced, resp)
	return nil
}

func (a *fakeAwards) Messages() memebot.Messages { return memebot.DefaultMessages() }

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func newDeps(t *testing.T, awards Awards) TaskDeps {
	t.Helper()
	return TaskDeps{
		Logger: logger.Discard(),
		Store:  newTestStore(t),
		Awards: awards,
		Config: &config.Config{Scheduler: config.SchedulerConfig{
			AwardsWindow:     "week",
			HandledRetention: 24 * time.Hour,
		}},
		Now: func() time.Time { return testNow },
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	tasks := RegisterAllTasks(newDeps(t, &fakeAwards{}))
	assert.Len(t, tasks, 2)
	assert.Contains(t, tasks, TaskMemeAwards)
	assert.Contains(t, tasks, TaskSQLMaintenance)
}

func TestMemeAwardsTask(t *testing.T) {
	t.Parallel()

	winner := memebot.ChatMessage{
		ID:          "100",
		Text:        "look at this",
		AuthorName:  "Dana",
		CreatedAt:   testNow.Add(-time.Hour),
		FavoritedBy: []string{"1", "2", "3"},
		Attachments: []memebot.Attachment{memebot.ImageAttachment("https://i.groupme.com/x", "")},
	}
	awards := &fakeAwards{best: winner}
	deps := newDeps(t, awards)
	task := newMemeAwardsTask(deps)

	require.NoError(t, task(t.Context()))
	require.Len(t, awards.announced, 1)
	assert.Equal(t, "MEME AWARDS\nBest post of the last week by Dana with 3 likes:\nlook at this", awards.announced[0].Text)
	assert.Equal(t, winner.Attachments, awards.announced[0].Attachments)

	last, err := deps.Store.LastAward(t.Context(), "week")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "100", last.MessageID)
	assert.Equal(t, 3, last.Likes)

	// Same winner next run: nothing new is posted.
	require.NoError(t, task(t.Context()))
	assert.Len(t, awards.announced, 1)

	awards.best = memebot.ChatMessage{ID: "101", AuthorName: "Eve", Text: "new champ", FavoritedBy: []string{"1"}}
	require.NoError(t, task(t.Context()))
	require.Len(t, awards.announced, 2)
	last, err = deps.Store.LastAward(t.Context(), "week")
	require.NoError(t, err)
	assert.Equal(t, "101", last.MessageID)
}

func TestMemeAwardsTaskFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		awards  *fakeAwards
		wantErr bool
	}{
		{
			name:   "no posts is not an error",
			awards: &fakeAwards{bestErr: fmt.Errorf("in the last week: %w", memebot.ErrNoPostsFound)},
		},
		{
			name:    "history unavailable",
			awards:  &fakeAwards{bestErr: errors.New("groupme down")},
			wantErr: true,
		},
		{
			name:    "post fails",
			awards:  &fakeAwards{best: memebot.ChatMessage{ID: "1"}, postErr: errors.New("groupme down")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deps := newDeps(t, tt.awards)

			err := newMemeAwardsTask(deps)(t.Context())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, tt.awards.announced)

			last, err := deps.Store.LastAward(t.Context(), "week")
			require.NoError(t, err)
			assert.Nil(t, last, "failed runs record no award")
		})
	}
}

func TestSQLMaintenanceTaskPrunesLedger(t *testing.T) {
	t.Parallel()
	deps := newDeps(t, &fakeAwards{})

	for id, age := range map[string]time.Duration{"old": 48 * time.Hour, "fresh": time.Hour} {
		_, err := deps.Store.MarkMessageHandled(t.Context(), database.HandledMessage{
			MessageID: id, GroupID: "g", HandledAt: testNow.Add(-age),
		})
		require.NoError(t, err)
	}

	require.NoError(t, newSQLMaintenanceTask(deps)(t.Context()))

	first, err := deps.Store.MarkMessageHandled(t.Context(), database.HandledMessage{MessageID: "old", GroupID: "g"})
	require.NoError(t, err)
	assert.True(t, first, "old entry was pruned")
	first, err = deps.Store.MarkMessageHandled(t.Context(), database.HandledMessage{MessageID: "fresh", GroupID: "g"})
	require.NoError(t, err)
	assert.False(t, first, "fresh entry was kept")
}
