package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/hivebot/internal/clock"
	"github.com/edgard/hivebot/internal/database"
)

// DueEntryLister returns the schedule entries due at a time of day.
type DueEntryLister interface {
	EntriesAtTime(ctx context.Context, timeOfDay string) ([]database.ScheduleEntry, error)
}

// PushTick sends every schedule entry due at the current minute.
type PushTick struct {
	Entries     DueEntryLister
	Sender      Sender
	Clock       clock.Clock
	SendTimeout time.Duration
	Logger      *slog.Logger
}

// TickReport summarizes one tick.
type TickReport struct {
	TimeOfDay string
	Matched   int
	Sent      int
	Failed    int
}

// Run performs one tick. A failed send is logged and does not stop the
// remaining entries; it is not retried. Run only fails when the due entries
// cannot be listed.
func (p *PushTick) Run(ctx context.Context) (TickReport, error) {
	report := TickReport{TimeOfDay: clock.TimeOfDay(p.Clock.Now())}

	entries, err := p.Entries.EntriesAtTime(ctx, report.TimeOfDay)
	if err != nil {
		return report, fmt.Errorf("failed to list entries due at %s: %w", report.TimeOfDay, err)
	}
	report.Matched = len(entries)

	for _, entry := range entries {
		if ctx.Err() != nil {
			report.Failed += report.Matched - report.Sent - report.Failed
			break
		}
		if err := p.send(ctx, entry); err != nil {
			report.Failed++
			p.Logger.WarnContext(ctx, "Failed to push scheduled message",
				"entry_id", entry.ID,
				"group_id", entry.ExternalGroupID,
				"message_id", entry.MessageID,
				"error", err)
			continue
		}
		report.Sent++
	}

	return report, nil
}

func (p *PushTick) send(ctx context.Context, entry database.ScheduleEntry) error {
	if p.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.SendTimeout)
		defer cancel()
	}
	return p.Sender.SendText(ctx, entry.ExternalGroupID, entry.MessageBody)
}

// newPushMessagesTask runs a PushTick on every invocation.
func newPushMessagesTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", PushMessagesTask)
	tick := &PushTick{
		Entries:     deps.Store,
		Sender:      deps.Sender,
		Clock:       deps.wallClock(),
		SendTimeout: deps.Config.Push.SendTimeout,
		Logger:      log,
	}

	return func(ctx context.Context) error {
		report, err := tick.Run(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Push tick failed", "time", report.TimeOfDay, "error", err)
			return err
		}
		if report.Matched > 0 {
			log.InfoContext(ctx, "Push tick completed",
				"time", report.TimeOfDay,
				"matched", report.Matched,
				"sent", report.Sent,
				"failed", report.Failed)
		}
		return nil
	}
}
