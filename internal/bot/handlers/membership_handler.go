package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/database"
)

// NewMembershipHandler returns the handler for the bot joining or leaving a
// group and for new members arriving in one.
func NewMembershipHandler(deps HandlerDeps) bot.HandlerFunc {
	return membershipHandler{deps}.Handle
}

type membershipHandler struct {
	deps HandlerDeps
}

// IsBotMembershipUpdate matches changes of the bot's own membership.
func IsBotMembershipUpdate(update *models.Update) bool {
	return update.MyChatMember != nil
}

// IsNewMembersUpdate matches service messages announcing new group members.
func IsNewMembersUpdate(update *models.Update) bool {
	return update.Message != nil && len(update.Message.NewChatMembers) > 0
}

func (h membershipHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h membershipHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "membership")

	switch {
	case IsBotMembershipUpdate(update):
		h.botMembership(ctx, log, m, update.MyChatMember)
	case IsNewMembersUpdate(update):
		h.welcomeMembers(ctx, log, m, update.Message)
	}
}

func isGroup(chat models.Chat) bool {
	switch string(chat.Type) {
	case "group", "supergroup":
		return true
	default:
		return false
	}
}

func (h membershipHandler) botMembership(ctx context.Context, log *slog.Logger, m Messenger, upd *models.ChatMemberUpdated) {
	if !isGroup(upd.Chat) {
		return
	}
	groupID := strconv.FormatInt(upd.Chat.ID, 10)
	log = log.With("chat_id", upd.Chat.ID, "status", string(upd.NewChatMember.Type))

	switch string(upd.NewChatMember.Type) {
	case "member", "administrator":
		text := h.deps.Config.Messages.GroupGreeting
		if _, err := h.deps.Store.RecordJoin(ctx, groupID, upd.Chat.Title); err != nil {
			log.ErrorContext(ctx, "Failed to record group join", "error", err)
			text = h.deps.Config.Messages.GroupInitError
		} else {
			log.InfoContext(ctx, "Joined group", "title", upd.Chat.Title)
		}
		h.send(ctx, log, m, upd.Chat.ID, text, "")

	case "left", "kicked":
		removed, err := h.deps.Store.RecordLeave(ctx, groupID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to record group leave", "error", err)
			return
		}
		log.InfoContext(ctx, "Left group", "was_registered", removed)
	}
}

func (h membershipHandler) welcomeMembers(ctx context.Context, log *slog.Logger, m Messenger, msg *models.Message) {
	if !isGroup(msg.Chat) {
		return
	}
	log = log.With("chat_id", msg.Chat.ID)

	group, err := h.deps.Store.GroupByExternalID(ctx, strconv.FormatInt(msg.Chat.ID, 10))
	switch {
	case errors.Is(err, database.ErrNotFound):
		// Joined before membership updates were tracked.
		if _, err := h.deps.Store.RecordJoin(ctx, strconv.FormatInt(msg.Chat.ID, 10), msg.Chat.Title); err != nil {
			log.ErrorContext(ctx, "Failed to register group", "error", err)
			return
		}
	case err != nil:
		log.ErrorContext(ctx, "Failed to look up group", "error", err)
		return
	case group.MuteWelcome:
		log.DebugContext(ctx, "Welcome muted for group")
		return
	}

	welcome, err := h.deps.Store.CurrentWelcome(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load welcome message", "error", err)
		return
	}

	mode := models.ParseMode(h.deps.Config.Messages.WelcomeParseMode)
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		greeting := fmt.Sprintf(h.deps.Config.Messages.WelcomeMember, escapeFor(mode, displayName(member)))
		h.send(ctx, log, m, msg.Chat.ID, greeting+"\n\n"+welcome, mode)
	}
}

// escapeFor escapes user-controlled text for the given parse mode.
func escapeFor(mode models.ParseMode, s string) string {
	switch mode {
	case models.ParseModeHTML:
		return html.EscapeString(s)
	case models.ParseModeMarkdown:
		return bot.EscapeMarkdown(s)
	default:
		return s
	}
}

func (h membershipHandler) send(ctx context.Context, log *slog.Logger, m Messenger, chatID int64, text string, mode models.ParseMode) {
	if _, err := m.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: mode}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}
