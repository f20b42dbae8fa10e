package conversation

import (
	"context"
	"fmt"
	"log/slog"
)

const defaultAdminName = "the one"

func (m *Machine) onCommand(ctx context.Context, log *slog.Logger, current State, actor Actor, cmd Command) step {
	switch cmd.Name {
	case "start":
		return m.start(ctx, log, actor)
	case "help":
		return stay(Reply{Text: helpText(actor.IsAdmin)})
	case "cancel":
		return moveTo(Menu{}, Reply{Text: m.texts.SessionEnded})
	case "whoami":
		return stay(Reply{Text: fmt.Sprintf(textWhoami, displayName(actor), actor.UserID)})
	}

	if !IsAdminCommand(cmd.Name) {
		return stay(Reply{Text: m.texts.UnknownCommand})
	}
	if !actor.IsAdmin {
		log.InfoContext(ctx, "Rejected admin command from non-admin", "command", cmd.Name)
		return stay(Reply{Text: m.texts.NotAuthorized})
	}

	switch cmd.Name {
	case "addadmin":
		return moveTo(AwaitingAdminIDAndName{}, Reply{Text: textAddAdminPrompt, Options: [][]Option{cancelRow()}})
	case "deladmin":
		return moveTo(AwaitingAdminIDToRemove{}, Reply{Text: textRemoveAdminPrompt, Options: [][]Option{cancelRow()}})
	case "admins":
		return moveTo(Menu{}, Reply{Text: textChooseAction, Options: adminsMenu()})
	case "himsg":
		return moveTo(Menu{}, Reply{Text: textWelcomeMenu, Options: welcomeMenu()})
	case "pollmsg":
		return moveTo(Menu{}, Reply{Text: textPollingMenu, Options: pollingMenu()})
	case "msg":
		msgs, err := m.store.ListPolling(ctx)
		if err != nil {
			return m.failure(ctx, log, "ListPolling", err)
		}
		if len(msgs) == 0 {
			return moveTo(Menu{}, Reply{Text: textNoPolling})
		}
		return moveTo(Menu{}, Reply{Text: textClickToDelete, Options: pollingList(msgs)})
	case "group":
		groups, err := m.store.ListGroups(ctx)
		if err != nil {
			return m.failure(ctx, log, "ListGroups", err)
		}
		if len(groups) == 0 {
			return moveTo(Menu{}, Reply{Text: textNoGroups})
		}
		return moveTo(Menu{}, Reply{Text: textSelectGroup, Options: groupList(groups)})
	default:
		return stay(Reply{Text: m.texts.UnknownCommand})
	}
}

// start bootstraps the first admin or opens the admin menu.
func (m *Machine) start(ctx context.Context, log *slog.Logger, actor Actor) step {
	if actor.IsAdmin {
		return moveTo(Menu{},
			Reply{Text: fmt.Sprintf(textWelcomeBack, displayName(actor)), Options: mainMenu()},
			PublishCommands{Admin: true},
		)
	}

	exists, err := m.store.HasAdmin(ctx)
	if err != nil {
		return m.failure(ctx, log, "HasAdmin", err)
	}
	if exists {
		return stay(Reply{Text: m.texts.AccessDenied})
	}

	granted, err := m.store.GrantAdmin(ctx, userID(actor), displayName(actor))
	if err != nil {
		return m.failure(ctx, log, "GrantAdmin", err)
	}
	if !granted {
		return stay(Reply{Text: textSetAdminFailed})
	}

	log.InfoContext(ctx, "Granted first administrator")
	return moveTo(Menu{},
		Reply{Text: textCongratulations},
		PublishCommands{Admin: true},
	)
}

func displayName(actor Actor) string {
	if actor.Name == "" {
		return defaultAdminName
	}
	return actor.Name
}
