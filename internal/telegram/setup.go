// Package telegram creates the Telegram client and wires handlers into it.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/hivebot/internal/bot/handlers"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created", "token_prefix", tokenPrefix(token))
	return b, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}

// applyMiddleware wraps a handler function with a slice of middleware.
// The first middleware in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Registrar is the registration surface of *bot.Bot.
type Registrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
	RegisterHandlerMatchFunc(matchFunc bot.MatchFunc, f bot.HandlerFunc, m ...bot.Middleware) string
}

// RegisterHandlers registers every handler with its middleware applied.
// Handlers carrying a Match predicate are registered by predicate.
func RegisterHandlers(b Registrar, logger *slog.Logger, registeredHandlers map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return errors.New("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registeredHandlers) == 0 {
		log.Warn("No handlers provided for registration")
		return nil
	}

	registered := 0
	for name, reg := range registeredHandlers {
		if reg.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}

		finalHandler := applyMiddleware(reg.Handler, reg.Middleware)
		if reg.Match != nil {
			b.RegisterHandlerMatchFunc(reg.Match, finalHandler)
		} else {
			b.RegisterHandler(reg.HandlerType, reg.Pattern, reg.MatchType, finalHandler)
		}
		registered++
		log.Debug("Registered handler", "name", name, "pattern", reg.Pattern, "predicate", reg.Match != nil, "middleware_count", len(reg.Middleware))
	}

	log.Info("Registered Telegram handlers", "count", registered)
	return nil
}

// MessageSender is the part of *bot.Bot used to push plain messages.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Sender delivers scheduled messages to groups by their external chat id.
type Sender struct {
	client    MessageSender
	parseMode models.ParseMode
}

// NewSender wraps a Telegram client. parseMode is applied to every message;
// empty sends plain text.
func NewSender(client MessageSender, parseMode string) *Sender {
	return &Sender{client: client, parseMode: models.ParseMode(parseMode)}
}

// SendText sends text to chatID, which is either a numeric chat id or an
// "@username" of a public chat.
func (s *Sender) SendText(ctx context.Context, chatID, text string) error {
	target, err := chatTarget(chatID)
	if err != nil {
		return err
	}
	params := &bot.SendMessageParams{ChatID: target, Text: text, ParseMode: s.parseMode}
	if _, err := s.client.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send to %s: %w", chatID, err)
	}
	return nil
}

func chatTarget(chatID string) (any, error) {
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") && len(chatID) > 1 {
		return chatID, nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}
