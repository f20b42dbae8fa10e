// Package conversation implements the admin dialogue: a per-conversation state
// machine that turns commands, free text, and button callbacks into state
// transitions, store mutations, and outbound effects.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownState is returned when persisted state cannot be decoded into a known variant.
var ErrUnknownState = errors.New("unknown conversation state")

// State is the persisted position of one conversation. The set of variants is closed.
type State interface {
	kind() string
}

// Menu is the idle state.
type Menu struct{}

// AwaitingAdminIDAndName waits for "<id> <name>" to grant admin rights.
type AwaitingAdminIDAndName struct{}

// AwaitingAdminIDToRemove waits for the id of the admin to revoke.
type AwaitingAdminIDToRemove struct{}

// AwaitingWelcomeText waits for the new welcome message body.
type AwaitingWelcomeText struct{}

// AwaitingPollingBody waits for the body of a new polling message.
type AwaitingPollingBody struct{}

// AwaitingPollingTitle holds the body entered in the previous step and waits for a title.
type AwaitingPollingTitle struct {
	Body string
}

// GroupChosen is the group menu for one group.
type GroupChosen struct {
	GroupID int64
}

// GroupMessageChosen waits for the HH:MM time at which MessageID is pushed to GroupID.
type GroupMessageChosen struct {
	GroupID   int64
	MessageID int64
}

// AdminChosen is the per-admin menu.
type AdminChosen struct {
	UserID string
}

// AwaitingAdminName waits for a new display name for UserID.
type AwaitingAdminName struct {
	UserID string
}

func (Menu) kind() string                    { return "menu" }
func (AwaitingAdminIDAndName) kind() string  { return "awaiting_admin_id_and_name" }
func (AwaitingAdminIDToRemove) kind() string { return "awaiting_admin_id_to_remove" }
func (AwaitingWelcomeText) kind() string     { return "awaiting_welcome_text" }
func (AwaitingPollingBody) kind() string     { return "awaiting_polling_body" }
func (AwaitingPollingTitle) kind() string    { return "awaiting_polling_title" }
func (GroupChosen) kind() string             { return "group_chosen" }
func (GroupMessageChosen) kind() string      { return "group_message_chosen" }
func (AdminChosen) kind() string             { return "admin_chosen" }
func (AwaitingAdminName) kind() string       { return "awaiting_admin_name" }

type envelope struct {
	Kind      string `json:"kind"`
	Body      string `json:"body,omitempty"`
	GroupID   int64  `json:"group_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// EncodeState serializes s as a JSON envelope tagged by its kind.
func EncodeState(s State) ([]byte, error) {
	if s == nil {
		s = Menu{}
	}
	env := envelope{Kind: s.kind()}
	switch v := s.(type) {
	case AwaitingPollingTitle:
		env.Body = v.Body
	case GroupChosen:
		env.GroupID = v.GroupID
	case GroupMessageChosen:
		env.GroupID = v.GroupID
		env.MessageID = v.MessageID
	case AdminChosen:
		env.UserID = v.UserID
	case AwaitingAdminName:
		env.UserID = v.UserID
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state %s: %w", env.Kind, err)
	}
	return data, nil
}

// DecodeState parses an envelope written by EncodeState. Envelopes whose
// payload is missing the fields their kind requires are rejected.
func DecodeState(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownState, err)
	}

	var s State
	switch env.Kind {
	case "menu":
		s = Menu{}
	case "awaiting_admin_id_and_name":
		s = AwaitingAdminIDAndName{}
	case "awaiting_admin_id_to_remove":
		s = AwaitingAdminIDToRemove{}
	case "awaiting_welcome_text":
		s = AwaitingWelcomeText{}
	case "awaiting_polling_body":
		s = AwaitingPollingBody{}
	case "awaiting_polling_title":
		if env.Body == "" {
			return nil, fmt.Errorf("%w: %s without body", ErrUnknownState, env.Kind)
		}
		s = AwaitingPollingTitle{Body: env.Body}
	case "group_chosen":
		if env.GroupID <= 0 {
			return nil, fmt.Errorf("%w: %s without group", ErrUnknownState, env.Kind)
		}
		s = GroupChosen{GroupID: env.GroupID}
	case "group_message_chosen":
		if env.GroupID <= 0 || env.MessageID <= 0 {
			return nil, fmt.Errorf("%w: %s without group or message", ErrUnknownState, env.Kind)
		}
		s = GroupMessageChosen{GroupID: env.GroupID, MessageID: env.MessageID}
	case "admin_chosen":
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: %s without user", ErrUnknownState, env.Kind)
		}
		s = AdminChosen{UserID: env.UserID}
	case "awaiting_admin_name":
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: %s without user", ErrUnknownState, env.Kind)
		}
		s = AwaitingAdminName{UserID: env.UserID}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, env.Kind)
	}
	return s, nil
}

// Key identifies a conversation: one per user within a chat.
func Key(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}
