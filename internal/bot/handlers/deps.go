package handlers

import (
	"log/slog"

	"github.com/edgard/hivebot/internal/config"
	"github.com/edgard/hivebot/internal/conversation"
	"github.com/edgard/hivebot/internal/database"
	"github.com/edgard/hivebot/internal/mutex"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Machine *conversation.Machine
	// Locks serializes events of one conversation.
	Locks *mutex.KeyedMutex
}
