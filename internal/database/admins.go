package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// HasAdmin reports whether at least one active admin exists.
func (s *sqlxStore) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM admins WHERE is_admin = 1)`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check for admins", "error", err)
		return false, fmt.Errorf("failed to check for admins: %w", err)
	}
	return exists, nil
}

// IsAdmin reports whether userID is an active admin.
func (s *sqlxStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = ? AND is_admin = 1)`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check admin", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to check admin %s: %w", userID, err)
	}
	return exists, nil
}

// GrantAdmin inserts userID unless any row for it already exists.
func (s *sqlxStore) GrantAdmin(ctx context.Context, userID, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, name, is_admin, created_at)
		SELECT ?, ?, 1, ?
		WHERE NOT EXISTS (SELECT 1 FROM admins WHERE user_id = ?)`,
		userID, name, now(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to grant admin", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to grant admin %s: %w", userID, err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, err
	}
	s.logger.DebugContext(ctx, "Grant admin", "user_id", userID, "granted", ok)
	return ok, nil
}

// ReactivateAdmin restores a revoked admin row.
func (s *sqlxStore) ReactivateAdmin(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE admins SET is_admin = 1 WHERE user_id = ? AND is_admin = 0`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reactivate admin", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to reactivate admin %s: %w", userID, err)
	}
	return affected(result)
}

// RevokeAdmin clears the admin flag where it is currently set.
func (s *sqlxStore) RevokeAdmin(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE admins SET is_admin = 0 WHERE user_id = ? AND is_admin = 1`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to revoke admin", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to revoke admin %s: %w", userID, err)
	}
	return affected(result)
}

// RenameAdmin changes the display name of an admin row.
func (s *sqlxStore) RenameAdmin(ctx context.Context, userID, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE admins SET name = ? WHERE user_id = ?`, name, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to rename admin", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to rename admin %s: %w", userID, err)
	}
	return affected(result)
}

// GetAdmin returns the admin row for userID.
func (s *sqlxStore) GetAdmin(ctx context.Context, userID string) (*Admin, error) {
	var admin Admin
	err := s.db.GetContext(ctx, &admin,
		`SELECT id, user_id, name, is_admin, created_at FROM admins WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin %s: %w", userID, err)
	}
	return &admin, nil
}

// ListAdmins returns all admin rows in insertion order.
func (s *sqlxStore) ListAdmins(ctx context.Context) ([]Admin, error) {
	var admins []Admin
	err := s.db.SelectContext(ctx, &admins,
		`SELECT id, user_id, name, is_admin, created_at FROM admins ORDER BY id`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list admins", "error", err)
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
