package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pathwise/api/internal/logging"
)

// Ledger owns check-in records and schedule configs for all users.
type Ledger struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	logger *logrus.Entry

	// configMu serializes read-modify-write of configs.
	configMu sync.Mutex
}

type LedgerOption func(*Ledger)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone schedule times are interpreted in.
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithLogger(logger *logrus.Entry) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		loc:    time.UTC,
		logger: logging.Component(logging.Discard(), "checkin"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) clock() time.Time {
	return l.now().In(l.loc)
}

// Record appends a check-in and stamps the owner's schedule.
func (l *Ledger) Record(ctx context.Context, userID string, in RecordInput) (Record, error) {
	goalID := strings.TrimSpace(in.GoalID)
	if goalID == "" {
		return Record{}, fmt.Errorf("%w: goalId is required", ErrInvalidInput)
	}
	if in.ProgressUpdate != nil && (*in.ProgressUpdate < 0 || *in.ProgressUpdate > 100) {
		return Record{}, fmt.Errorf("%w: progressUpdate must be between 0 and 100", ErrInvalidInput)
	}

	now := l.clock()
	record := Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		GoalID:      goalID,
		CheckinDate: now,
		Mood:        strings.TrimSpace(in.Mood),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ProgressUpdate != nil {
		value := *in.ProgressUpdate
		record.ProgressUpdate = &value
	}
	if err := l.store.AppendRecord(ctx, record); err != nil {
		return Record{}, fmt.Errorf("append check-in: %w", err)
	}

	if err := l.touchConfig(ctx, userID, now); err != nil {
		// The record is already stored; only the schedule is stale.
		l.logger.WithError(err).WithField("user_id", userID).Warn("check-in schedule not updated")
	}
	return cloneRecord(record), nil
}

func (l *Ledger) ListAll(ctx context.Context, userID string) ([]Record, error) {
	records, err := l.store.ListRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (l *Ledger) ListForGoal(ctx context.Context, userID, goalID string) ([]Record, error) {
	records, err := l.store.ListRecordsForGoal(ctx, userID, goalID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins for goal: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// GetConfig returns the user's config, creating the default on first access.
func (l *Ledger) GetConfig(ctx context.Context, userID string) (Config, error) {
	l.configMu.Lock()
	defer l.configMu.Unlock()
	return l.loadOrCreate(ctx, userID)
}

func (l *Ledger) UpdateConfig(ctx context.Context, userID string, patch ConfigPatch) (Config, error) {
	if patch.Interval != nil && !patch.Interval.Valid() {
		return Config{}, fmt.Errorf("%w: interval must be daily, weekly or monthly", ErrInvalidInput)
	}
	if patch.Time != nil {
		if _, _, err := ParseClock(*patch.Time); err != nil {
			return Config{}, err
		}
	}

	l.configMu.Lock()
	defer l.configMu.Unlock()

	cfg, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return Config{}, err
	}
	if patch.Interval != nil {
		cfg.Interval = *patch.Interval
	}
	if patch.Time != nil {
		cfg.Time = strings.TrimSpace(*patch.Time)
	}
	if patch.RemindersEnabled != nil {
		cfg.RemindersEnabled = *patch.RemindersEnabled
	}

	now := l.clock()
	next, err := NextCheckin(cfg.Interval, cfg.Time, now)
	if err != nil {
		return Config{}, err
	}
	cfg.NextCheckin = &next
	cfg.UpdatedAt = now
	if err := l.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, fmt.Errorf("save check-in config: %w", err)
	}
	return cfg, nil
}

// Advance moves a config's NextCheckin past now. Used after a reminder is sent.
func (l *Ledger) Advance(ctx context.Context, userID string) (Config, error) {
	l.configMu.Lock()
	defer l.configMu.Unlock()

	cfg, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return Config{}, err
	}
	now := l.clock()
	next, err := NextCheckin(cfg.Interval, cfg.Time, now)
	if err != nil {
		return Config{}, err
	}
	cfg.NextCheckin = &next
	cfg.UpdatedAt = now
	if err := l.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, fmt.Errorf("save check-in config: %w", err)
	}
	return cfg, nil
}

func (l *Ledger) touchConfig(ctx context.Context, userID string, now time.Time) error {
	l.configMu.Lock()
	defer l.configMu.Unlock()

	cfg, err := l.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	last := now
	cfg.LastCheckin = &last
	next, err := NextCheckin(cfg.Interval, cfg.Time, now)
	if err != nil {
		return err
	}
	cfg.NextCheckin = &next
	cfg.UpdatedAt = now
	return l.store.SaveConfig(ctx, cfg)
}

// loadOrCreate must be called with configMu held.
func (l *Ledger) loadOrCreate(ctx context.Context, userID string) (Config, error) {
	cfg, err := l.store.GetConfig(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Config{}, fmt.Errorf("load check-in config: %w", err)
	}
	now := l.clock()
	next, err := NextCheckin(IntervalDaily, "", now)
	if err != nil {
		return Config{}, err
	}
	cfg = Config{
		UserID:           userID,
		Interval:         IntervalDaily,
		Time:             "",
		RemindersEnabled: true,
		NextCheckin:      &next,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, fmt.Errorf("create check-in config: %w", err)
	}
	return cfg, nil
}
