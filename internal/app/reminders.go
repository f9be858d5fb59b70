package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/email"
	"pathwise/api/internal/goals"
	"pathwise/api/internal/identity"
)

// Mailer is the slice of email.Service reminders need.
type Mailer interface {
	IsConfigured() bool
	SendCheckinReminder(to string, data email.ReminderData) error
}

// ReminderNotifier delivers check-in reminders by email, or only logs them
// when SMTP is not configured.
type ReminderNotifier struct {
	identity *identity.Service
	goals    *goals.Repository
	mailer   Mailer
	logger   *logrus.Entry
	loc      *time.Location
}

var _ checkin.Notifier = (*ReminderNotifier)(nil)

func NewReminderNotifier(ident *identity.Service, repo *goals.Repository, mailer Mailer, loc *time.Location, logger *logrus.Entry) *ReminderNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderNotifier{identity: ident, goals: repo, mailer: mailer, logger: logger, loc: loc}
}

func (n *ReminderNotifier) NotifyCheckin(ctx context.Context, cfg checkin.Config) error {
	user, err := n.identity.User(ctx, cfg.UserID)
	if err != nil {
		return fmt.Errorf("load reminder recipient: %w", err)
	}

	data := email.ReminderData{
		AppName:  "Pathwise",
		Interval: string(cfg.Interval),
	}
	if cfg.NextCheckin != nil {
		data.DueAt = cfg.NextCheckin.In(n.loc).Format("Mon 2 Jan 2006 15:04 MST")
	}
	for _, summary := range n.goals.List(cfg.UserID) {
		goal, err := n.goals.Get(cfg.UserID, summary.ID)
		if err != nil {
			continue
		}
		data.Goals = append(data.Goals, email.ReminderGoal{
			Title:         goal.Title,
			Progress:      goal.Progress,
			NextObjective: goal.NextObjective(),
		})
	}

	entry := n.logger.WithFields(logrus.Fields{"user_id": user.ID, "interval": cfg.Interval})
	if n.mailer == nil || !n.mailer.IsConfigured() {
		entry.WithField("goals", len(data.Goals)).Info("check-in reminder due (email disabled)")
		return nil
	}
	if err := n.mailer.SendCheckinReminder(user.Email, data); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}
