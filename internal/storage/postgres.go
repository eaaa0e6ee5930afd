package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"dealnote/internal/dedupe"

	_ "github.com/lib/pq"
)

// PostgresStore is a durable dedupe store. Unlike the in-memory store it
// survives process restarts, closing the restart double-submit gap.
//
// Both methods are best-effort: a database error degrades to "not seen"
// rather than blocking the pipeline.
type PostgresStore struct {
	db     *sql.DB
	window time.Duration
}

// NewPostgresStore opens the database and ensures the schema exists.
func NewPostgresStore(databaseURL string, window time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, window: window}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS noted_messages (
			channel_id VARCHAR(255) NOT NULL,
			message_ts VARCHAR(255) NOT NULL,
			noted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (channel_id, message_ts)
		);
	`
	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create noted_messages table: %w", err)
	}

	indexSQL := "CREATE INDEX IF NOT EXISTS idx_noted_messages_noted_at ON noted_messages(noted_at);"
	if _, err := s.db.Exec(indexSQL); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Seen reports whether the message was noted within the dedupe window.
func (s *PostgresStore) Seen(key dedupe.Key) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM noted_messages
			WHERE channel_id = $1 AND message_ts = $2 AND noted_at > $3
		)
	`

	var seen bool
	cutoff := time.Now().Add(-s.window)
	err := s.db.QueryRowContext(ctx, query, key.ChannelID, key.Timestamp, cutoff).Scan(&seen)
	if err != nil {
		slog.Error("Dedupe lookup failed, treating message as unseen", "error", err,
			"channel_id", key.ChannelID, "message_ts", key.Timestamp)
		return false
	}

	return seen
}

// Mark records the message as noted now.
func (s *PostgresStore) Mark(key dedupe.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO noted_messages (channel_id, message_ts, noted_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel_id, message_ts)
		DO UPDATE SET noted_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key.ChannelID, key.Timestamp); err != nil {
		slog.Error("Failed to mark message as noted", "error", err,
			"channel_id", key.ChannelID, "message_ts", key.Timestamp)
	}
}

// Start runs a periodic cleanup of rows older than the window until the
// context is cancelled.
func (s *PostgresStore) Start(ctx context.Context) {
	slog.Info("Starting dedupe table cleanup job", "window", s.window)

	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dedupe table cleanup job stopped")
			return
		case <-ticker.C:
			if err := s.cleanup(ctx); err != nil {
				slog.Error("Dedupe table cleanup failed", "error", err)
			}
		}
	}
}

func (s *PostgresStore) cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-s.window)
	result, err := s.db.ExecContext(ctx, "DELETE FROM noted_messages WHERE noted_at < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired rows: %w", err)
	}

	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		slog.Debug("Deleted expired dedupe rows", "deleted", deleted)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
