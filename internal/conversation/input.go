package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/edgard/hivebot/internal/clock"
)

func (m *Machine) onText(ctx context.Context, log *slog.Logger, current State, actor Actor, t Text) step {
	switch current.(type) {
	case Menu, GroupChosen, AdminChosen:
		return stay()
	}

	// Only admins can have entered an input state; a revoked admin falls back to Menu.
	if !actor.IsAdmin {
		return moveTo(Menu{}, Reply{Text: m.texts.NotAuthorized})
	}

	switch s := current.(type) {
	case AwaitingAdminIDAndName:
		return m.addAdmin(ctx, log, t.Text)
	case AwaitingAdminIDToRemove:
		return m.removeAdmin(ctx, log, t.Text)
	case AwaitingAdminName:
		return m.renameAdmin(ctx, log, s.UserID, t.Text)
	case AwaitingWelcomeText:
		return m.setWelcome(ctx, log, t.Text)
	case AwaitingPollingBody:
		body := strings.TrimSpace(t.Text)
		if body == "" {
			return stay(Reply{Text: textEmptyMessage})
		}
		return moveTo(AwaitingPollingTitle{Body: body}, Reply{Text: textPollingTitle, Options: [][]Option{cancelRow()}})
	case AwaitingPollingTitle:
		return m.addPolling(ctx, log, s, t.Text)
	case GroupMessageChosen:
		return m.addPush(ctx, log, s, t.Text)
	default:
		return mismatch(log, current, "input")
	}
}

func (m *Machine) addAdmin(ctx context.Context, log *slog.Logger, text string) step {
	fields := strings.Fields(text)
	if len(fields) != 2 || !isUserID(fields[0]) {
		return stay(Reply{Text: textAddAdminFormat})
	}
	uid, name := fields[0], fields[1]

	granted, err := m.store.GrantAdmin(ctx, uid, name)
	if err != nil {
		return m.failure(ctx, log, "GrantAdmin", err)
	}
	if granted {
		log.InfoContext(ctx, "Granted administrator", "target", uid)
		return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textAdminAdded, name, uid)})
	}

	reactivated, err := m.store.ReactivateAdmin(ctx, uid)
	if err != nil {
		return m.failure(ctx, log, "ReactivateAdmin", err)
	}
	if reactivated {
		log.InfoContext(ctx, "Reactivated administrator", "target", uid)
		return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textAdminReactivated, name, uid)})
	}
	return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textAdminExists, uid)})
}

// isUserID reports whether s is a Telegram user id. Ids are matched against
// the numeric sender id and embedded in callback tokens.
func isUserID(s string) bool {
	id, err := strconv.ParseInt(s, 10, 64)
	return err == nil && id > 0
}

func (m *Machine) removeAdmin(ctx context.Context, log *slog.Logger, text string) step {
	fields := strings.Fields(text)
	if len(fields) != 1 || !isUserID(fields[0]) {
		return stay(Reply{Text: textRemoveAdminFormat})
	}

	revoked, err := m.store.RevokeAdmin(ctx, fields[0])
	if err != nil {
		return m.failure(ctx, log, "RevokeAdmin", err)
	}
	if !revoked {
		return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textAdminNotActive, fields[0])})
	}
	log.InfoContext(ctx, "Revoked administrator", "target", fields[0])
	return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textAdminRemoved, fields[0])})
}

func (m *Machine) renameAdmin(ctx context.Context, log *slog.Logger, uid, text string) step {
	name := strings.TrimSpace(text)
	if name == "" {
		return stay(Reply{Text: textInputError})
	}

	renamed, err := m.store.RenameAdmin(ctx, uid, name)
	if err != nil {
		return m.failure(ctx, log, "RenameAdmin", err)
	}
	if !renamed {
		return moveTo(Menu{}, Reply{Text: textAdminNotFound})
	}
	return moveTo(Menu{}, Reply{Text: textSuccess})
}

func (m *Machine) setWelcome(ctx context.Context, log *slog.Logger, text string) step {
	body := strings.TrimSpace(text)
	if body == "" {
		return stay(Reply{Text: textEmptyMessage})
	}
	if err := m.store.UpsertWelcome(ctx, body); err != nil {
		return m.failure(ctx, log, "UpsertWelcome", err)
	}
	return moveTo(Menu{}, Reply{Text: textWelcomeUpdated})
}

func (m *Machine) addPolling(ctx context.Context, log *slog.Logger, s AwaitingPollingTitle, text string) step {
	if s.Body == "" {
		log.WarnContext(ctx, "Polling title state without body, resetting")
		return moveTo(Menu{}, Reply{Text: textStateReset})
	}
	title := strings.TrimSpace(text)
	if title == "" {
		return stay(Reply{Text: textInputError})
	}

	id, err := m.store.AddPolling(ctx, title, s.Body)
	if err != nil {
		return m.failure(ctx, log, "AddPolling", err)
	}
	log.InfoContext(ctx, "Added polling message", "message_id", id)
	return moveTo(Menu{}, Reply{Text: fmt.Sprintf(textPollingAdded, title)})
}

func (m *Machine) addPush(ctx context.Context, log *slog.Logger, s GroupMessageChosen, text string) step {
	tod, err := clock.ParseTimeOfDay(text)
	if err != nil {
		return stay(Reply{Text: textBadTime})
	}

	id, err := m.store.AddEntry(ctx, s.MessageID, s.GroupID, tod)
	if errors.Is(err, clock.ErrInvalidTimeFormat) {
		return stay(Reply{Text: textBadTime})
	}
	if err != nil {
		return m.failure(ctx, log, "AddEntry", err)
	}
	log.InfoContext(ctx, "Scheduled push", "entry_id", id, "group_id", s.GroupID, "time", tod)

	group, err := m.store.GetGroup(ctx, s.GroupID)
	if err != nil {
		log.WarnContext(ctx, "Failed to reload group after scheduling", "error", err)
		group = nil
	}
	return moveTo(GroupChosen{GroupID: s.GroupID}, Reply{Text: textSuccess, Options: groupMenu(group)})
}
