package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ListPolling returns the polling messages in insertion order.
func (s *sqlxStore) ListPolling(ctx context.Context) ([]CatalogMessage, error) {
	var msgs []CatalogMessage
	err := s.db.SelectContext(ctx, &msgs,
		`SELECT id, kind, title, body, created_at FROM catalog_messages WHERE kind = ? ORDER BY id`,
		KindPolling)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list polling messages", "error", err)
		return nil, fmt.Errorf("failed to list polling messages: %w", err)
	}
	return msgs, nil
}

// GetMessage returns a catalog message by id.
func (s *sqlxStore) GetMessage(ctx context.Context, id int64) (*CatalogMessage, error) {
	var msg CatalogMessage
	err := s.db.GetContext(ctx, &msg,
		`SELECT id, kind, title, body, created_at FROM catalog_messages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %d: %w", id, err)
	}
	return &msg, nil
}

// UpsertWelcome overwrites the welcome body or inserts it when none exists.
func (s *sqlxStore) UpsertWelcome(ctx context.Context, text string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE catalog_messages SET body = ? WHERE kind = ?`, text, KindWelcome)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to update welcome message", "error", err)
			return fmt.Errorf("failed to update welcome message: %w", err)
		}
		updated, err := affected(result)
		if err != nil {
			return err
		}
		if updated {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO catalog_messages (kind, title, body, created_at) VALUES (?, ?, ?, ?)`,
			KindWelcome, "Welcome", text, now())
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to insert welcome message", "error", err)
			return fmt.Errorf("failed to insert welcome message: %w", err)
		}
		return nil
	})
}

// AddPolling inserts a polling message.
func (s *sqlxStore) AddPolling(ctx context.Context, title, body string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_messages (kind, title, body, created_at) VALUES (?, ?, ?, ?)`,
		KindPolling, title, body, now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to add polling message", "title", title, "error", err)
		return 0, fmt.Errorf("failed to add polling message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read polling message id: %w", err)
	}
	s.logger.DebugContext(ctx, "Polling message added", "message_id", id, "title", title)
	return id, nil
}

// DeleteMessage removes the schedule entries referencing id, then the message itself.
func (s *sqlxStore) DeleteMessage(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE message_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete schedule entries for message %d: %w", id, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM catalog_messages WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete message %d: %w", id, err)
		}
		deleted, err = affected(result)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete message", "message_id", id, "error", err)
		return false, err
	}
	return deleted, nil
}

// CurrentWelcome returns the welcome text, falling back to DefaultWelcomeText.
func (s *sqlxStore) CurrentWelcome(ctx context.Context) (string, error) {
	var body string
	err := s.db.GetContext(ctx, &body,
		`SELECT body FROM catalog_messages WHERE kind = ? ORDER BY id DESC LIMIT 1`, KindWelcome)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultWelcomeText, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read welcome message", "error", err)
		return "", fmt.Errorf("failed to read welcome message: %w", err)
	}
	return body, nil
}
