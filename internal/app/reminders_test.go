package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/email"
	"pathwise/api/internal/logging"
)

type fakeMailer struct {
	configured bool
	err        error
	sent       []sentReminder
}

type sentReminder struct {
	to   string
	data email.ReminderData
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) SendCheckinReminder(to string, data email.ReminderData) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentReminder{to: to, data: data})
	return nil
}

func reminderFixture(t *testing.T, mailer Mailer) (*ReminderNotifier, checkin.Config) {
	t.Helper()
	ctx := context.Background()
	env := newTestEnv(t)
	user, err := env.service.SignUp(ctx, "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := env.service.CreateGoal(ctx, Session{UserID: user.ID}, CreateGoalInput{Title: "Learn ML", Timeline: "3 months"}); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	due := time.Date(2024, 3, 11, 18, 30, 0, 0, time.UTC)
	cfg := checkin.Config{
		UserID:           user.ID,
		Interval:         checkin.IntervalWeekly,
		Time:             "18:30",
		RemindersEnabled: true,
		NextCheckin:      &due,
	}
	notifier := NewReminderNotifier(env.identity, env.goals, mailer, time.UTC, logging.Component(logging.Discard(), "reminders"))
	return notifier, cfg
}

func TestReminderNotifierSendsGoalSummary(t *testing.T) {
	mailer := &fakeMailer{configured: true}
	notifier, cfg := reminderFixture(t, mailer)

	if err := notifier.NotifyCheckin(context.Background(), cfg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(mailer.sent))
	}

	sent := mailer.sent[0]
	if sent.to != "ada@example.com" {
		t.Fatalf("expected recipient ada@example.com, got %q", sent.to)
	}
	if sent.data.Interval != "weekly" || sent.data.DueAt != "Mon 11 Mar 2024 18:30 UTC" {
		t.Fatalf("unexpected schedule in reminder: %+v", sent.data)
	}
	if len(sent.data.Goals) != 1 {
		t.Fatalf("expected 1 goal in reminder, got %d", len(sent.data.Goals))
	}
	goal := sent.data.Goals[0]
	if goal.Title != "Learn ML" || goal.Progress != 25 || goal.NextObjective != "Milestone 3 for Learn ML" {
		t.Fatalf("unexpected goal summary %+v", goal)
	}
}

func TestReminderNotifierSkipsUnconfiguredMailer(t *testing.T) {
	mailer := &fakeMailer{configured: false}
	notifier, cfg := reminderFixture(t, mailer)

	if err := notifier.NotifyCheckin(context.Background(), cfg); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(mailer.sent))
	}

	nilNotifier, cfg := reminderFixture(t, nil)
	if err := nilNotifier.NotifyCheckin(context.Background(), cfg); err != nil {
		t.Fatalf("notify without mailer: %v", err)
	}
}

func TestReminderNotifierReportsSendFailure(t *testing.T) {
	mailer := &fakeMailer{configured: true, err: errors.New("smtp down")}
	notifier, cfg := reminderFixture(t, mailer)

	err := notifier.NotifyCheckin(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected smtp failure, got %v", err)
	}
}

func TestReminderNotifierUnknownUser(t *testing.T) {
	notifier, cfg := reminderFixture(t, &fakeMailer{configured: true})
	cfg.UserID = "ghost"
	if err := notifier.NotifyCheckin(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}
