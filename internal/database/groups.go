package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const groupColumns = `id, group_id, name, mute_polling, mute_welcome, joined_at`

// RecordJoin registers a group. An existing group keeps its id and name.
func (s *sqlxStore) RecordJoin(ctx context.Context, externalGroupID, name string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &id, `SELECT id FROM chat_groups WHERE group_id = ?`, externalGroupID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up group %s: %w", externalGroupID, err)
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO chat_groups (group_id, name, joined_at) VALUES (?, ?, ?)`,
			externalGroupID, name, now())
		if err != nil {
			return fmt.Errorf("failed to insert group %s: %w", externalGroupID, err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read group id: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record group join", "group_id", externalGroupID, "error", err)
		return 0, err
	}
	s.logger.InfoContext(ctx, "Group recorded", "group_id", externalGroupID, "id", id)
	return id, nil
}

// RecordLeave removes a group and its schedule entries.
func (s *sqlxStore) RecordLeave(ctx context.Context, externalGroupID string) (bool, error) {
	var removed bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM schedule_entries
			WHERE group_id IN (SELECT id FROM chat_groups WHERE group_id = ?)`, externalGroupID)
		if err != nil {
			return fmt.Errorf("failed to delete schedule entries for group %s: %w", externalGroupID, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM chat_groups WHERE group_id = ?`, externalGroupID)
		if err != nil {
			return fmt.Errorf("failed to delete group %s: %w", externalGroupID, err)
		}
		removed, err = affected(result)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record group leave", "group_id", externalGroupID, "error", err)
		return false, err
	}
	return removed, nil
}

// ListGroups returns every registered group.
func (s *sqlxStore) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := s.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM chat_groups ORDER BY id`); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list groups", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// GetGroup returns a group by internal id.
func (s *sqlxStore) GetGroup(ctx context.Context, id int64) (*Group, error) {
	return s.getGroup(ctx, `SELECT `+groupColumns+` FROM chat_groups WHERE id = ?`, id)
}

// GroupByExternalID returns a group by its chat id.
func (s *sqlxStore) GroupByExternalID(ctx context.Context, externalGroupID string) (*Group, error) {
	return s.getGroup(ctx, `SELECT `+groupColumns+` FROM chat_groups WHERE group_id = ?`, externalGroupID)
}

func (s *sqlxStore) getGroup(ctx context.Context, query string, arg any) (*Group, error) {
	var group Group
	err := s.db.GetContext(ctx, &group, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %v: %w", arg, err)
	}
	return &group, nil
}

// SetMutePolling toggles scheduled pushes for a group.
func (s *sqlxStore) SetMutePolling(ctx context.Context, id int64, muted bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE chat_groups SET mute_polling = ? WHERE id = ?`, muted, id)
	if err != nil {
		return false, fmt.Errorf("failed to set mute_polling for group %d: %w", id, err)
	}
	return affected(result)
}

// SetMuteWelcome toggles welcome messages for a group.
func (s *sqlxStore) SetMuteWelcome(ctx context.Context, id int64, muted bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE chat_groups SET mute_welcome = ? WHERE id = ?`, muted, id)
	if err != nil {
		return false, fmt.Errorf("failed to set mute_welcome for group %d: %w", id, err)
	}
	return affected(result)
}
