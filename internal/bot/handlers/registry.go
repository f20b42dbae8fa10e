package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/conversation"
)

// RegisteredHandler describes one handler registration. Handlers with a Match
// function are registered by predicate instead of by pattern.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	Match       func(update *models.Update) bool
}

// RegisterAllCommands returns every handler keyed by a descriptive name.
// Free text and unmatched commands go to the default handler, which is the
// conversation handler as well.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)
	conv := NewConversationHandler(deps)
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	for _, cmd := range conversation.Commands(true) {
		h := RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     cmd.Name,
			Handler:     conv,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
		}
		if cmd.AdminOnly {
			h.Middleware = adminMiddleware
		}
		handlers["/"+cmd.Name] = h
	}

	handlers["callback"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     "",
		Handler:     conv,
		MatchType:   tgbot.MatchTypePrefix,
		Middleware:  adminMiddleware,
	}

	membership := NewMembershipHandler(deps)
	handlers["my_chat_member"] = RegisteredHandler{
		Handler: membership,
		Match:   IsBotMembershipUpdate,
	}
	handlers["new_chat_members"] = RegisteredHandler{
		Handler: membership,
		Match:   IsNewMembersUpdate,
	}

	return handlers
}
