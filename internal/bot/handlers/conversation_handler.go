package handlers

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/conversation"
)

// NewConversationHandler returns the handler feeding messages and button
// presses into the conversation machine.
func NewConversationHandler(deps HandlerDeps) bot.HandlerFunc {
	return conversationHandler{deps}.Handle
}

type conversationHandler struct {
	deps HandlerDeps
}

func (h conversationHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

// inbound is an update reduced to what the machine needs.
type inbound struct {
	target
	user  models.User
	event conversation.Event
}

func parseUpdate(update *models.Update) (inbound, bool) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Text == "" {
			return inbound{}, false
		}
		return inbound{
			target: target{chatID: msg.Chat.ID},
			user:   *msg.From,
			event:  conversation.ParseMessage(msg.Text),
		}, true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		in := inbound{
			target: target{callbackID: cq.ID},
			user:   cq.From,
			event:  conversation.Callback{Token: cq.Data},
		}
		switch {
		case cq.Message.Message != nil:
			in.chatID = cq.Message.Message.Chat.ID
			in.promptID = cq.Message.Message.ID
		case cq.Message.InaccessibleMessage != nil:
			in.chatID = cq.Message.InaccessibleMessage.Chat.ID
		default:
			// Inline-mode callbacks carry no chat; answer them privately.
			in.chatID = cq.From.ID
		}
		return in, true

	default:
		return inbound{}, false
	}
}

func displayName(u models.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

func (h conversationHandler) handle(ctx context.Context, m Messenger, update *models.Update) {
	log := h.deps.Logger.With("handler", "conversation")

	in, ok := parseUpdate(update)
	if !ok {
		log.DebugContext(ctx, "Ignoring update without text or sender", "update_id", update.ID)
		return
	}

	isAdmin, err := h.deps.Store.IsAdmin(ctx, strconv.FormatInt(in.user.ID, 10))
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve admin status", "user_id", in.user.ID, "error", err)
		applyEffects(ctx, log, m, in.target, []conversation.Effect{
			conversation.Notice{Text: h.deps.Config.Messages.GenericFailure},
		})
		return
	}

	key := conversation.Key(in.chatID, in.user.ID)
	h.deps.Locks.Lock(key)
	defer h.deps.Locks.Unlock(key)

	actor := conversation.Actor{UserID: in.user.ID, Name: displayName(in.user), IsAdmin: isAdmin}
	out := h.deps.Machine.HandleEvent(ctx, key, actor, in.event)

	applyEffects(ctx, log, m, in.target, out.Effects)
}
