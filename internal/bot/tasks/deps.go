// Package tasks implements the scheduled jobs of the bot: the per-minute push
// of scheduled messages and periodic database maintenance.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/hivebot/internal/clock"
	"github.com/edgard/hivebot/internal/config"
	"github.com/edgard/hivebot/internal/database"
)

// Sender delivers a plain text message to a chat addressed by its external id.
type Sender interface {
	SendText(ctx context.Context, chatID string, text string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Sender Sender
	// Clock defaults to the wall clock in the scheduler's time zone.
	Clock  clock.Clock
	Config *config.Config
}

func (d TaskDeps) wallClock() clock.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return clock.Local{Location: d.Config.Scheduler.Location()}
}
