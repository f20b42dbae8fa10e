package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LoadState returns the encoded conversation state stored under key.
func (s *sqlxStore) LoadState(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT state FROM conversation_states WHERE conv_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load conversation state", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to load conversation state %s: %w", key, err)
	}
	return []byte(data), true, nil
}

// SaveState upserts the encoded conversation state under key.
func (s *sqlxStore) SaveState(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_states (conv_key, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(conv_key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		key, string(data), now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save conversation state", "key", key, "error", err)
		return fmt.Errorf("failed to save conversation state %s: %w", key, err)
	}
	return nil
}

// PruneStates deletes conversation states idle since before.
func (s *sqlxStore) PruneStates(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_states WHERE updated_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune conversation states: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned rows: %w", err)
	}
	return n, nil
}
