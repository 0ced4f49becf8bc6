package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the database operations used by the webhook and the
// scheduled tasks.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// MarkMessageHandled records msg and reports whether it was seen for the
	// first time.
	MarkMessageHandled(ctx context.Context, msg HandledMessage) (bool, error)

	// PruneHandledMessages deletes ledger rows handled before the cutoff and
	// returns how many were removed.
	PruneHandledMessages(ctx context.Context, before time.Time) (int64, error)

	// SaveAward inserts an award and sets its ID.
	SaveAward(ctx context.Context, award *Award) error

	// LastAward returns the most recent award for window. Returns nil, nil if
	// there is none.
	LastAward(ctx context.Context, window string) (*Award, error)

	// RunSQLMaintenance optimizes and vacuums the database.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) MarkMessageHandled(ctx context.Context, msg HandledMessage) (bool, error) {
	if msg.MessageID == "" {
		return false, fmt.Errorf("handled message must have a message_id")
	}
	if msg.HandledAt.IsZero() {
		msg.HandledAt = time.Now()
	}
	msg.HandledAt = msg.HandledAt.UTC()

	query := `
        INSERT OR IGNORE INTO handled_messages (message_id, group_id, sender_id, handled_at)
        VALUES (:message_id, :group_id, :sender_id, :handled_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording handled message", "message_id", msg.MessageID, "error", err)
		return false, fmt.Errorf("failed to record message %s: %w", msg.MessageID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for message %s: %w", msg.MessageID, err)
	}
	return n == 1, nil
}

func (s *sqlxStore) PruneHandledMessages(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM handled_messages WHERE handled_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune handled messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	s.logger.DebugContext(ctx, "Pruned handled messages", "before", before, "deleted", n)
	return n, nil
}

func (s *sqlxStore) SaveAward(ctx context.Context, award *Award) error {
	if award == nil {
		return fmt.Errorf("cannot save nil award")
	}
	if award.Window == "" || award.MessageID == "" {
		return fmt.Errorf("award must have a window and a message_id")
	}
	if award.AwardedAt.IsZero() {
		award.AwardedAt = time.Now()
	}
	award.AwardedAt = award.AwardedAt.UTC()

	query := `
        INSERT INTO awards (time_window, message_id, author_name, text, likes, awarded_at)
        VALUES (:time_window, :message_id, :author_name, :text, :likes, :awarded_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, award)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving award", "window", award.Window, "message_id", award.MessageID, "error", err)
		return fmt.Errorf("failed to save award for %s: %w", award.Window, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get award id: %w", err)
	}
	award.ID = id
	return nil
}

func (s *sqlxStore) LastAward(ctx context.Context, window string) (*Award, error) {
	var award Award
	query := `
        SELECT id, time_window, message_id, author_name, text, likes, awarded_at
        FROM awards
        WHERE time_window = ?
        ORDER BY awarded_at DESC, id DESC
        LIMIT 1;
    `
	if err := s.db.GetContext(ctx, &award, query, window); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last award for %s: %w", window, err)
	}
	return &award, nil
}

// RunSQLMaintenance runs PRAGMA optimize and VACUUM. VACUUM cannot run inside
// a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		s.logger.WarnContext(ctx, "Context done before database maintenance", "error", err)
		return err
	}

	start := time.Now()
	s.logger.InfoContext(ctx, "Starting database maintenance")
	for _, stmt := range []string{"PRAGMA optimize", "VACUUM"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.ErrorContext(ctx, "Database maintenance failed", "statement", stmt, "error", err)
			return fmt.Errorf("failed to run %s: %w", stmt, err)
		}
	}
	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
