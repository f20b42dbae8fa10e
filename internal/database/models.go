package database

import "time"

// MessageKind distinguishes the welcome message from polling messages in the catalog.
type MessageKind int

const (
	// KindPolling is a titled message that can be scheduled to groups.
	KindPolling MessageKind = 1
	// KindWelcome is the singleton message greeting new group members.
	KindWelcome MessageKind = 2
)

// DefaultWelcomeText is returned when no welcome message has been set.
const DefaultWelcomeText = "Hi! Nice to meet you"

// Admin is an entry in the admin directory. Revoked admins keep their row
// with IsAdmin set to false.
type Admin struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}

// CatalogMessage is a welcome or polling message.
type CatalogMessage struct {
	ID        int64       `db:"id"`
	Kind      MessageKind `db:"kind"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	CreatedAt time.Time   `db:"created_at"`
}

// Group is a chat the bot currently participates in.
type Group struct {
	ID          int64     `db:"id"`
	GroupID     string    `db:"group_id"` // external chat id
	Name        string    `db:"name"`
	MutePolling bool      `db:"mute_polling"`
	MuteWelcome bool      `db:"mute_welcome"`
	JoinedAt    time.Time `db:"joined_at"`
}

// ScheduleEntry associates a catalog message with a group at a daily time of day.
// The message and group columns are filled by joined queries.
type ScheduleEntry struct {
	ID        int64  `db:"id"`
	MessageID int64  `db:"message_id"`
	GroupID   int64  `db:"group_id"`
	TimeOfDay string `db:"time_of_day"`

	MessageTitle    string `db:"message_title"`
	MessageBody     string `db:"message_body"`
	ExternalGroupID string `db:"external_group_id"`
}
