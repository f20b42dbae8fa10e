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

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance optimizes the database file.
	RunSQLMaintenance(ctx context.Context) error

	// --- Admin directory ---

	// HasAdmin reports whether at least one active admin exists.
	HasAdmin(ctx context.Context) (bool, error)
	// IsAdmin reports whether userID is an active admin.
	IsAdmin(ctx context.Context, userID string) (bool, error)
	// GrantAdmin inserts userID as an active admin. It returns false without
	// changes when a row for userID already exists, active or revoked.
	GrantAdmin(ctx context.Context, userID, name string) (bool, error)
	// ReactivateAdmin restores a revoked admin.
	ReactivateAdmin(ctx context.Context, userID string) (bool, error)
	// RevokeAdmin clears the admin flag of an active admin.
	RevokeAdmin(ctx context.Context, userID string) (bool, error)
	// RenameAdmin changes the display name of an existing admin row.
	RenameAdmin(ctx context.Context, userID, name string) (bool, error)
	// GetAdmin returns the admin row for userID or ErrNotFound.
	GetAdmin(ctx context.Context, userID string) (*Admin, error)
	// ListAdmins returns every admin row in insertion order.
	ListAdmins(ctx context.Context) ([]Admin, error)

	// --- Message catalog ---

	// ListPolling returns the polling messages in insertion order.
	ListPolling(ctx context.Context) ([]CatalogMessage, error)
	// GetMessage returns a catalog message or ErrNotFound.
	GetMessage(ctx context.Context, id int64) (*CatalogMessage, error)
	// UpsertWelcome sets the welcome text, overwriting any existing one.
	UpsertWelcome(ctx context.Context, text string) error
	// AddPolling inserts a polling message and returns its id.
	AddPolling(ctx context.Context, title, body string) (int64, error)
	// DeleteMessage removes a message together with its schedule entries.
	DeleteMessage(ctx context.Context, id int64) (bool, error)
	// CurrentWelcome returns the welcome text or DefaultWelcomeText.
	CurrentWelcome(ctx context.Context) (string, error)

	// --- Group registry ---

	// RecordJoin registers a group and returns its id. Existing groups are returned unchanged.
	RecordJoin(ctx context.Context, externalGroupID, name string) (int64, error)
	// RecordLeave removes a group and its schedule entries.
	RecordLeave(ctx context.Context, externalGroupID string) (bool, error)
	// ListGroups returns every registered group.
	ListGroups(ctx context.Context) ([]Group, error)
	// GetGroup returns a group by internal id or ErrNotFound.
	GetGroup(ctx context.Context, id int64) (*Group, error)
	// GroupByExternalID returns a group by chat id or ErrNotFound.
	GroupByExternalID(ctx context.Context, externalGroupID string) (*Group, error)
	// SetMutePolling toggles scheduled pushes for a group.
	SetMutePolling(ctx context.Context, id int64, muted bool) (bool, error)
	// SetMuteWelcome toggles welcome messages for a group.
	SetMuteWelcome(ctx context.Context, id int64, muted bool) (bool, error)

	// --- Schedule store ---

	// AddEntry schedules messageID to groupID at timeOfDay (HH:MM).
	AddEntry(ctx context.Context, messageID, groupID int64, timeOfDay string) (int64, error)
	// EntriesForGroup returns a group's entries joined with message title and body.
	EntriesForGroup(ctx context.Context, groupID int64) ([]ScheduleEntry, error)
	// EntriesAtTime returns the entries due at timeOfDay for groups that are not muted.
	EntriesAtTime(ctx context.Context, timeOfDay string) ([]ScheduleEntry, error)
	// DeleteEntry removes one schedule entry.
	DeleteEntry(ctx context.Context, id int64) (bool, error)
	// DeleteEntriesForMessage removes every entry that references messageID.
	DeleteEntriesForMessage(ctx context.Context, messageID int64) (bool, error)

	// --- Conversation state ---

	// LoadState returns the encoded state stored under key.
	LoadState(ctx context.Context, key string) ([]byte, bool, error)
	// SaveState stores the encoded state under key.
	SaveState(ctx context.Context, key string, data []byte) error
	// PruneStates deletes states not updated since before.
	PruneStates(ctx context.Context, before time.Time) (int64, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance refreshes query planner statistics and executes VACUUM.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}

// affected reports whether a statement changed at least one row.
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func now() time.Time {
	return time.Now().UTC()
}
