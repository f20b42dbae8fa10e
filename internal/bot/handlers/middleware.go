// Package handlers contains the Telegram update handlers, their registration
// and middleware.
package handlers

import (
	"context"
	"strconv"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/conversation"
)

// AdminOnly stops updates from users that are not active admins and tells them so.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if adminOnly(ctx, deps, b, update) {
				next(ctx, b, update)
			}
		}
	}
}

// adminOnly reports whether the update may proceed, replying to rejected senders.
func adminOnly(ctx context.Context, deps HandlerDeps, m Messenger, update *models.Update) bool {
	in, ok := parseUpdate(update)
	if !ok {
		return true
	}

	log := deps.Logger.With("middleware", "AdminOnly")
	isAdmin, err := deps.Store.IsAdmin(ctx, strconv.FormatInt(in.user.ID, 10))
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve admin status", "user_id", in.user.ID, "error", err)
		applyEffects(ctx, log, m, in.target, []conversation.Effect{
			conversation.Notice{Text: deps.Config.Messages.GenericFailure},
		})
		return false
	}
	if isAdmin {
		return true
	}

	log.WarnContext(ctx, "Unauthorized access attempt", "user_id", in.user.ID, "chat_id", in.chatID)
	applyEffects(ctx, log, m, in.target, []conversation.Effect{
		conversation.Notice{Text: deps.Config.Messages.NotAuthorized},
	})
	return false
}
