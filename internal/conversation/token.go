package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownToken is returned by ParseToken for callback data matching no action.
var ErrUnknownToken = errors.New("unknown callback token")

const tokenSep = "_"

// Action is a parsed callback token.
type Action interface {
	isAction()
}

type (
	// ListAdmins shows the admin directory.
	ListAdmins struct{}
	// AddAdmin starts the add-admin prompt.
	AddAdmin struct{}
	// BackToMenu shows the main admin menu.
	BackToMenu struct{}
	// ChooseAdmin opens the menu for one admin.
	ChooseAdmin struct{ UserID string }
	// RevokeChosenAdmin revokes the admin opened with ChooseAdmin.
	RevokeChosenAdmin struct{}
	// RenameChosenAdmin prompts for a new name for the admin opened with ChooseAdmin.
	RenameChosenAdmin struct{}
	// SetWelcome prompts for a new welcome message.
	SetWelcome struct{}
	// ShowWelcome shows the current welcome message.
	ShowWelcome struct{}
	// AddPolling starts the two-step polling message prompt.
	AddPolling struct{}
	// ListPolling lists polling messages for deletion.
	ListPolling struct{}
	// DeletePolling deletes a polling message and its schedule.
	DeletePolling struct{ MessageID int64 }
	// ListGroups lists the groups the bot has joined.
	ListGroups struct{}
	// ChooseGroup opens the group menu.
	ChooseGroup struct{ GroupID int64 }
	// AddPush lists polling messages to schedule in the chosen group.
	AddPush struct{}
	// ViewPush lists the chosen group's schedule for deletion.
	ViewPush struct{}
	// ChoosePushMessage picks the message to schedule and prompts for a time.
	ChoosePushMessage struct{ MessageID int64 }
	// DeletePush deletes one schedule entry of the chosen group.
	DeletePush struct{ EntryID int64 }
	// TogglePushMute flips scheduled pushes for the chosen group.
	TogglePushMute struct{}
	// ToggleWelcomeMute flips welcome messages for the chosen group.
	ToggleWelcomeMute struct{}
	// CancelGroup leaves the group menu for the group list.
	CancelGroup struct{}
	// Cancel ends the current operation and removes the prompt.
	Cancel struct{}
)

func (ListAdmins) isAction()        {}
func (AddAdmin) isAction()          {}
func (BackToMenu) isAction()        {}
func (ChooseAdmin) isAction()       {}
func (RevokeChosenAdmin) isAction() {}
func (RenameChosenAdmin) isAction() {}
func (SetWelcome) isAction()        {}
func (ShowWelcome) isAction()       {}
func (AddPolling) isAction()        {}
func (ListPolling) isAction()       {}
func (DeletePolling) isAction()     {}
func (ListGroups) isAction()        {}
func (ChooseGroup) isAction()       {}
func (AddPush) isAction()           {}
func (ViewPush) isAction()          {}
func (ChoosePushMessage) isAction() {}
func (DeletePush) isAction()        {}
func (TogglePushMute) isAction()    {}
func (ToggleWelcomeMute) isAction() {}
func (CancelGroup) isAction()       {}
func (Cancel) isAction()            {}

// Token renders a as callback data. ParseToken(Token(a)) returns a.
func Token(a Action) string {
	switch v := a.(type) {
	case ListAdmins:
		return "managers"
	case AddAdmin:
		return "newly_added"
	case BackToMenu:
		return "back_admin"
	case ChooseAdmin:
		return "chosen_admin_" + v.UserID
	case RevokeChosenAdmin:
		return "admin_delete"
	case RenameChosenAdmin:
		return "admin_rename"
	case SetWelcome:
		return "setting_welcome_message"
	case ShowWelcome:
		return "current_welcome_message"
	case AddPolling:
		return "add_poll_message"
	case ListPolling:
		return "list_poll_message"
	case DeletePolling:
		return "poll_delete_" + strconv.FormatInt(v.MessageID, 10)
	case ListGroups:
		return "group_list"
	case ChooseGroup:
		return "group_" + strconv.FormatInt(v.GroupID, 10)
	case AddPush:
		return "group_add_push"
	case ViewPush:
		return "group_view_push"
	case ChoosePushMessage:
		return "group_msg_" + strconv.FormatInt(v.MessageID, 10)
	case DeletePush:
		return "group_delete_push_" + strconv.FormatInt(v.EntryID, 10)
	case TogglePushMute:
		return "group_mute_push"
	case ToggleWelcomeMute:
		return "group_mute_welcome"
	case CancelGroup:
		return "cancel_group"
	case Cancel:
		return "cancel"
	default:
		return ""
	}
}

// ParseToken parses callback data into an Action. The grammar is a sequence of
// "_"-separated parts: a fixed prefix tag followed by at most one typed field.
// "group_<id>" may carry a trailing "_<name>" suffix, which is ignored.
func ParseToken(token string) (Action, error) {
	switch token {
	case "managers":
		return ListAdmins{}, nil
	case "newly_added":
		return AddAdmin{}, nil
	case "back_admin":
		return BackToMenu{}, nil
	case "admin_delete":
		return RevokeChosenAdmin{}, nil
	case "admin_rename":
		return RenameChosenAdmin{}, nil
	case "setting_welcome_message":
		return SetWelcome{}, nil
	case "current_welcome_message":
		return ShowWelcome{}, nil
	case "add_poll_message":
		return AddPolling{}, nil
	case "list_poll_message":
		return ListPolling{}, nil
	case "group_list":
		return ListGroups{}, nil
	case "group_add_push":
		return AddPush{}, nil
	case "group_view_push":
		return ViewPush{}, nil
	case "group_mute_push":
		return TogglePushMute{}, nil
	case "group_mute_welcome":
		return ToggleWelcomeMute{}, nil
	case "cancel_group":
		return CancelGroup{}, nil
	case "cancel":
		return Cancel{}, nil
	}

	parts := strings.Split(token, tokenSep)
	switch {
	case len(parts) == 3 && parts[0] == "chosen" && parts[1] == "admin" && parts[2] != "":
		return ChooseAdmin{UserID: parts[2]}, nil
	case len(parts) == 3 && parts[0] == "poll" && parts[1] == "delete":
		if id, ok := parseID(parts[2]); ok {
			return DeletePolling{MessageID: id}, nil
		}
	case len(parts) == 3 && parts[0] == "group" && parts[1] == "msg":
		if id, ok := parseID(parts[2]); ok {
			return ChoosePushMessage{MessageID: id}, nil
		}
	case len(parts) == 4 && parts[0] == "group" && parts[1] == "delete" && parts[2] == "push":
		if id, ok := parseID(parts[3]); ok {
			return DeletePush{EntryID: id}, nil
		}
	case len(parts) >= 2 && parts[0] == "group":
		if id, ok := parseID(parts[1]); ok {
			return ChooseGroup{GroupID: id}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
