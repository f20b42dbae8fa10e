package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/hivebot/internal/database"
)

func (m *Machine) onCallback(ctx context.Context, log *slog.Logger, current State, actor Actor, cb Callback) step {
	if !actor.IsAdmin {
		log.InfoContext(ctx, "Rejected callback from non-admin", "token", cb.Token)
		return stay(Notice{Text: m.texts.NotAuthorized})
	}

	action, err := ParseToken(cb.Token)
	if err != nil {
		log.WarnContext(ctx, "Unroutable callback", "token", cb.Token)
		return stay(Notice{Text: fmt.Sprintf(textMissingActuator, cb.Token)})
	}

	switch a := action.(type) {
	case Cancel:
		return moveTo(Menu{}, ClearPrompt{}, Notice{Text: textCancelled})
	case BackToMenu:
		return moveTo(Menu{}, EditPrompt{Text: textChooseAction, Options: mainMenu()})

	case ListAdmins:
		return m.listAdmins(ctx, log)
	case AddAdmin:
		return moveTo(AwaitingAdminIDAndName{}, EditPrompt{Text: textAddAdminPrompt, Options: [][]Option{cancelRow()}})
	case ChooseAdmin:
		return m.chooseAdmin(ctx, log, a.UserID)
	case RevokeChosenAdmin:
		chosen, ok := current.(AdminChosen)
		if !ok {
			return mismatch(log, current, "admin_chosen")
		}
		return m.revokeChosen(ctx, log, chosen.UserID)
	case RenameChosenAdmin:
		chosen, ok := current.(AdminChosen)
		if !ok {
			return mismatch(log, current, "admin_chosen")
		}
		return moveTo(AwaitingAdminName{UserID: chosen.UserID}, EditPrompt{Text: textRenamePrompt, Options: [][]Option{cancelRow()}})

	case SetWelcome:
		return moveTo(AwaitingWelcomeText{}, EditPrompt{Text: textWelcomePrompt, Options: [][]Option{cancelRow()}})
	case ShowWelcome:
		text, err := m.store.CurrentWelcome(ctx)
		if err != nil {
			return m.noticeFailure(ctx, log, "CurrentWelcome", err)
		}
		return moveTo(Menu{}, EditPrompt{Text: fmt.Sprintf(textCurrentWelcome, text), Options: welcomeMenu()})

	case AddPolling:
		return moveTo(AwaitingPollingBody{}, EditPrompt{Text: textPollingBodyPrompt, Options: [][]Option{cancelRow()}})
	case ListPolling:
		return m.listPolling(ctx, log, nil)
	case DeletePolling:
		return m.deletePolling(ctx, log, a.MessageID)

	case ListGroups, CancelGroup:
		return m.listGroups(ctx, log)
	case ChooseGroup:
		return m.openGroup(ctx, log, a.GroupID, nil)
	}

	groupID, ok := groupOf(current)
	if !ok {
		return mismatch(log, current, "group_chosen")
	}

	switch a := action.(type) {
	case AddPush:
		msgs, err := m.store.ListPolling(ctx)
		if err != nil {
			return m.noticeFailure(ctx, log, "ListPolling", err)
		}
		if len(msgs) == 0 {
			return moveTo(GroupChosen{GroupID: groupID}, Notice{Text: textNoPolling})
		}
		return moveTo(GroupChosen{GroupID: groupID}, EditPrompt{Text: textSpecifyMessage, Options: pushMessages(groupID, msgs)})
	case ChoosePushMessage:
		return moveTo(GroupMessageChosen{GroupID: groupID, MessageID: a.MessageID},
			EditPrompt{Text: textTimePrompt, Options: [][]Option{{option("⬅️ Back", ChooseGroup{GroupID: groupID})}}},
		)
	case ViewPush:
		return m.viewPush(ctx, log, groupID, nil)
	case DeletePush:
		deleted, err := m.store.DeleteEntry(ctx, a.EntryID)
		if err != nil {
			return m.noticeFailure(ctx, log, "DeleteEntry", err)
		}
		return m.viewPush(ctx, log, groupID, resultNotice(deleted))
	case TogglePushMute:
		return m.toggleMute(ctx, log, groupID, func(g *database.Group) (bool, error) {
			return m.store.SetMutePolling(ctx, g.ID, !g.MutePolling)
		})
	case ToggleWelcomeMute:
		return m.toggleMute(ctx, log, groupID, func(g *database.Group) (bool, error) {
			return m.store.SetMuteWelcome(ctx, g.ID, !g.MuteWelcome)
		})
	}

	return stay(Notice{Text: fmt.Sprintf(textMissingActuator, cb.Token)})
}

func resultNotice(ok bool) Effect {
	if ok {
		return Notice{Text: textSuccess}
	}
	return Notice{Text: textFailed}
}

// withNotice prepends an acknowledgement to st when one is given.
func withNotice(notice Effect, st step) step {
	if notice == nil {
		return st
	}
	st.effects = append([]Effect{notice}, st.effects...)
	return st
}

func (m *Machine) listAdmins(ctx context.Context, log *slog.Logger) step {
	admins, err := m.store.ListAdmins(ctx)
	if err != nil {
		return m.noticeFailure(ctx, log, "ListAdmins", err)
	}
	if len(admins) == 0 {
		return moveTo(Menu{}, EditPrompt{Text: textNoAdmins, Options: [][]Option{{option("⬅️ Back", BackToMenu{})}}})
	}
	return moveTo(Menu{}, EditPrompt{Text: textAdminList, Options: adminList(admins)})
}

func (m *Machine) chooseAdmin(ctx context.Context, log *slog.Logger, uid string) step {
	admin, err := m.store.GetAdmin(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return moveTo(Menu{}, Notice{Text: textAdminNotFound})
	}
	if err != nil {
		return m.noticeFailure(ctx, log, "GetAdmin", err)
	}
	return moveTo(AdminChosen{UserID: admin.UserID},
		EditPrompt{Text: fmt.Sprintf(textAdminMenu, admin.Name, admin.UserID), Options: adminActions()},
	)
}

func (m *Machine) revokeChosen(ctx context.Context, log *slog.Logger, uid string) step {
	revoked, err := m.store.RevokeAdmin(ctx, uid)
	if err != nil {
		return m.noticeFailure(ctx, log, "RevokeAdmin", err)
	}
	if revoked {
		log.InfoContext(ctx, "Revoked administrator", "target", uid)
	}
	return withNotice(resultNotice(revoked), m.listAdmins(ctx, log))
}

// deletePolling removes a polling message. The welcome message shares the
// catalog and is never deleted through this path.
func (m *Machine) deletePolling(ctx context.Context, log *slog.Logger, id int64) step {
	msg, err := m.store.GetMessage(ctx, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return m.listPolling(ctx, log, resultNotice(false))
	case err != nil:
		return m.noticeFailure(ctx, log, "GetMessage", err)
	case msg.Kind != database.KindPolling:
		log.WarnContext(ctx, "Refused to delete non-polling message", "message_id", id, "kind", msg.Kind)
		return m.listPolling(ctx, log, resultNotice(false))
	}

	deleted, err := m.store.DeleteMessage(ctx, id)
	if err != nil {
		return m.noticeFailure(ctx, log, "DeleteMessage", err)
	}
	return m.listPolling(ctx, log, resultNotice(deleted))
}

func (m *Machine) listPolling(ctx context.Context, log *slog.Logger, notice Effect) step {
	msgs, err := m.store.ListPolling(ctx)
	if err != nil {
		return m.noticeFailure(ctx, log, "ListPolling", err)
	}
	if len(msgs) == 0 {
		return withNotice(notice, moveTo(Menu{}, EditPrompt{Text: textNoPolling, Options: pollingMenu()}))
	}
	return withNotice(notice, moveTo(Menu{}, EditPrompt{Text: textClickToDelete, Options: pollingList(msgs)}))
}

func (m *Machine) listGroups(ctx context.Context, log *slog.Logger) step {
	groups, err := m.store.ListGroups(ctx)
	if err != nil {
		return m.noticeFailure(ctx, log, "ListGroups", err)
	}
	if len(groups) == 0 {
		return moveTo(Menu{}, EditPrompt{Text: textNoGroups})
	}
	return moveTo(Menu{}, EditPrompt{Text: textSelectGroup, Options: groupList(groups)})
}

func (m *Machine) openGroup(ctx context.Context, log *slog.Logger, groupID int64, notice Effect) step {
	group, err := m.store.GetGroup(ctx, groupID)
	if errors.Is(err, database.ErrNotFound) {
		return moveTo(Menu{}, EditPrompt{Text: textGroupNotFound})
	}
	if err != nil {
		return m.noticeFailure(ctx, log, "GetGroup", err)
	}
	return withNotice(notice, moveTo(GroupChosen{GroupID: group.ID},
		EditPrompt{Text: fmt.Sprintf(textGroupMenu, group.Name), Options: groupMenu(group)},
	))
}

func (m *Machine) viewPush(ctx context.Context, log *slog.Logger, groupID int64, notice Effect) step {
	entries, err := m.store.EntriesForGroup(ctx, groupID)
	if err != nil {
		return m.noticeFailure(ctx, log, "EntriesForGroup", err)
	}
	text := textClickToDelete
	if len(entries) == 0 {
		text = textNoPushes
	}
	return withNotice(notice, moveTo(GroupChosen{GroupID: groupID},
		EditPrompt{Text: text, Options: pushEntries(groupID, entries)},
	))
}

func (m *Machine) toggleMute(ctx context.Context, log *slog.Logger, groupID int64, set func(*database.Group) (bool, error)) step {
	group, err := m.store.GetGroup(ctx, groupID)
	if errors.Is(err, database.ErrNotFound) {
		return moveTo(Menu{}, EditPrompt{Text: textGroupNotFound})
	}
	if err != nil {
		return m.noticeFailure(ctx, log, "GetGroup", err)
	}
	changed, err := set(group)
	if err != nil {
		return m.noticeFailure(ctx, log, "SetMute", err)
	}
	return m.openGroup(ctx, log, groupID, resultNotice(changed))
}
