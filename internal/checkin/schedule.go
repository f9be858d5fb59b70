package checkin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// maxMonthlyDay keeps monthly schedules on a day every month has.
const maxMonthlyDay = 28

// ParseClock validates an "HH:MM" string. The empty string means midnight.
func ParseClock(value string) (hour, minute int, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, nil
	}
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q, expected HH:MM", ErrInvalidInput, value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in %q", ErrInvalidInput, value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in %q", ErrInvalidInput, value)
	}
	return hour, minute, nil
}

// ScheduleSpec renders interval + clock as a standard five-field cron spec
// anchored on now: weekly repeats on now's weekday, monthly on now's day of
// month (capped at 28).
func ScheduleSpec(interval Interval, clock string, now time.Time) (string, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	switch interval {
	case IntervalDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case IntervalWeekly:
		return fmt.Sprintf("%d %d * * %d", minute, hour, int(now.Weekday())), nil
	case IntervalMonthly:
		day := now.Day()
		if day > maxMonthlyDay {
			day = maxMonthlyDay
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), nil
	default:
		return "", fmt.Errorf("%w: interval %q", ErrInvalidInput, interval)
	}
}

// NextCheckin is the first scheduled occurrence strictly after now, in now's location.
func NextCheckin(interval Interval, clock string, now time.Time) (time.Time, error) {
	spec, err := ScheduleSpec(interval, clock, now)
	if err != nil {
		return time.Time{}, err
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	next := schedule.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule %q has no next occurrence", spec)
	}
	return next, nil
}
