package handlers

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/conversation"
)

// Messenger is the part of the Telegram API the handlers call.
type Messenger interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *tgbot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *tgbot.DeleteMessageParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	SetMyCommands(ctx context.Context, params *tgbot.SetMyCommandsParams) (bool, error)
}

var _ Messenger = (*tgbot.Bot)(nil)

// target is where effects of one event are delivered.
type target struct {
	chatID int64
	// promptID is the message carrying the pressed button, zero for messages.
	promptID int
	// callbackID is set for button presses and must be answered exactly once.
	callbackID string
}

func keyboard(options [][]conversation.Option) models.ReplyMarkup {
	if len(options) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(options))
	for _, row := range options {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, o := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: o.Label, CallbackData: o.Token})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func botCommands(admin bool) []models.BotCommand {
	infos := conversation.Commands(admin)
	cmds := make([]models.BotCommand, 0, len(infos))
	for _, c := range infos {
		cmds = append(cmds, models.BotCommand{Command: c.Name, Description: c.Description})
	}
	return cmds
}

// applyEffects delivers effects in order. Delivery failures are logged and do
// not stop the remaining effects.
func applyEffects(ctx context.Context, log *slog.Logger, m Messenger, t target, effects []conversation.Effect) {
	var notice string

	send := func(text string, options [][]conversation.Option) {
		if _, err := m.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:      t.chatID,
			Text:        text,
			ReplyMarkup: keyboard(options),
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send message", "chat_id", t.chatID, "error", err)
		}
	}

	for _, effect := range effects {
		switch e := effect.(type) {
		case conversation.Reply:
			send(e.Text, e.Options)
		case conversation.EditPrompt:
			if t.promptID == 0 {
				send(e.Text, e.Options)
				continue
			}
			if _, err := m.EditMessageText(ctx, &tgbot.EditMessageTextParams{
				ChatID:      t.chatID,
				MessageID:   t.promptID,
				Text:        e.Text,
				ReplyMarkup: keyboard(e.Options),
			}); err != nil {
				log.WarnContext(ctx, "Failed to edit prompt", "chat_id", t.chatID, "message_id", t.promptID, "error", err)
			}
		case conversation.ClearPrompt:
			if t.promptID == 0 {
				continue
			}
			if _, err := m.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: t.chatID, MessageID: t.promptID}); err != nil {
				log.WarnContext(ctx, "Failed to delete prompt", "chat_id", t.chatID, "message_id", t.promptID, "error", err)
			}
		case conversation.Notice:
			if t.callbackID == "" {
				send(e.Text, nil)
				continue
			}
			if notice == "" {
				notice = e.Text
			}
		case conversation.PublishCommands:
			if _, err := m.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{
				Commands: botCommands(e.Admin),
				Scope:    &models.BotCommandScopeChat{ChatID: t.chatID},
			}); err != nil {
				log.WarnContext(ctx, "Failed to publish commands", "chat_id", t.chatID, "error", err)
			}
		}
	}

	if t.callbackID != "" {
		answerCallback(ctx, log, m, t.callbackID, notice)
	}
}

func answerCallback(ctx context.Context, log *slog.Logger, m Messenger, id, text string) {
	if _, err := m.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "callback_query_id", id, "error", err)
	}
}
