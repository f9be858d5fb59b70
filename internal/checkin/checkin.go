// Package checkin records mood/progress check-ins and per-user check-in schedules.
package checkin

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid check-in input")
	ErrNotFound     = errors.New("check-in config not found")
)

type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	default:
		return false
	}
}

// Record is an immutable check-in. GoalID is a weak reference: the goal may
// no longer exist.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	GoalID         string    `json:"goalId"`
	CheckinDate    time.Time `json:"checkinDate"`
	Mood           string    `json:"mood,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ProgressUpdate *int      `json:"progressUpdate,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type RecordInput struct {
	GoalID         string
	Mood           string
	Notes          string
	ProgressUpdate *int
}

// Config is the per-user check-in schedule.
type Config struct {
	UserID           string     `json:"userId"`
	Interval         Interval   `json:"interval"`
	Time             string     `json:"time"`
	RemindersEnabled bool       `json:"remindersEnabled"`
	LastCheckin      *time.Time `json:"lastCheckin,omitempty"`
	NextCheckin      *time.Time `json:"nextCheckin,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ConfigPatch carries the fields an update supplies; nil means unchanged.
type ConfigPatch struct {
	Interval         *Interval
	Time             *string
	RemindersEnabled *bool
}

// Store persists records append-only and configs by upsert.
type Store interface {
	AppendRecord(ctx context.Context, record Record) error
	ListRecords(ctx context.Context, userID string) ([]Record, error)
	ListRecordsForGoal(ctx context.Context, userID, goalID string) ([]Record, error)
	GetConfig(ctx context.Context, userID string) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
	ListDueConfigs(ctx context.Context, at time.Time) ([]Config, error)
	Ping(ctx context.Context) error
}
