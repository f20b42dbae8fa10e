package database

import (
	"context"
	"fmt"

	"github.com/edgard/hivebot/internal/clock"
)

// AddEntry schedules a message to a group at a daily time of day.
func (s *sqlxStore) AddEntry(ctx context.Context, messageID, groupID int64, timeOfDay string) (int64, error) {
	tod, err := clock.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_entries (message_id, group_id, time_of_day, created_at) VALUES (?, ?, ?, ?)`,
		messageID, groupID, tod, now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to add schedule entry",
			"message_id", messageID, "group_id", groupID, "time_of_day", tod, "error", err)
		return 0, fmt.Errorf("failed to add schedule entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read schedule entry id: %w", err)
	}
	return id, nil
}

// EntriesForGroup returns a group's entries ordered by time of day.
func (s *sqlxStore) EntriesForGroup(ctx context.Context, groupID int64) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT se.id, se.message_id, se.group_id, se.time_of_day,
		       m.title AS message_title, m.body AS message_body, g.group_id AS external_group_id
		FROM schedule_entries se
		JOIN catalog_messages m ON m.id = se.message_id
		JOIN chat_groups g ON g.id = se.group_id
		WHERE se.group_id = ?
		ORDER BY se.time_of_day, se.id`, groupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list schedule entries for group", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to list schedule entries for group %d: %w", groupID, err)
	}
	return entries, nil
}

// EntriesAtTime returns entries due at timeOfDay, skipping groups with pushes muted.
func (s *sqlxStore) EntriesAtTime(ctx context.Context, timeOfDay string) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT se.id, se.message_id, se.group_id, se.time_of_day,
		       m.title AS message_title, m.body AS message_body, g.group_id AS external_group_id
		FROM schedule_entries se
		JOIN catalog_messages m ON m.id = se.message_id
		JOIN chat_groups g ON g.id = se.group_id
		WHERE se.time_of_day = ? AND g.mute_polling = 0
		ORDER BY se.id`, timeOfDay)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list schedule entries at time", "time_of_day", timeOfDay, "error", err)
		return nil, fmt.Errorf("failed to list schedule entries at %s: %w", timeOfDay, err)
	}
	return entries, nil
}

// DeleteEntry removes one schedule entry.
func (s *sqlxStore) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule entry %d: %w", id, err)
	}
	return affected(result)
}

// DeleteEntriesForMessage removes every entry referencing messageID.
func (s *sqlxStore) DeleteEntriesForMessage(ctx context.Context, messageID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE message_id = ?`, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule entries for message %d: %w", messageID, err)
	}
	return affected(result)
}
