package checkin

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a single check-in reminder.
type Notifier interface {
	NotifyCheckin(ctx context.Context, cfg Config) error
}

type NotifierFunc func(ctx context.Context, cfg Config) error

func (f NotifierFunc) NotifyCheckin(ctx context.Context, cfg Config) error { return f(ctx, cfg) }

// Reminders sends reminders for due schedules and advances them.
type Reminders struct {
	ledger   *Ledger
	notifier Notifier
	logger   *logrus.Entry
}

func NewReminders(ledger *Ledger, notifier Notifier, logger *logrus.Entry) *Reminders {
	if logger == nil {
		logger = ledger.logger
	}
	return &Reminders{ledger: ledger, notifier: notifier, logger: logger}
}

// Run notifies every config whose NextCheckin has passed and returns how many
// were delivered. A failed delivery leaves the schedule untouched so the next
// run retries it.
func (r *Reminders) Run(ctx context.Context) (int, error) {
	now := r.ledger.clock()
	due, err := r.ledger.store.ListDueConfigs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due check-ins: %w", err)
	}

	sent := 0
	for _, cfg := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		entry := r.logger.WithField("user_id", cfg.UserID)
		if err := r.notifier.NotifyCheckin(ctx, cfg); err != nil {
			entry.WithError(err).Warn("check-in reminder failed")
			continue
		}
		if _, err := r.ledger.Advance(ctx, cfg.UserID); err != nil {
			return sent, fmt.Errorf("advance schedule for %s: %w", cfg.UserID, err)
		}
		sent++
		entry.Info("check-in reminder sent")
	}
	return sent, nil
}
