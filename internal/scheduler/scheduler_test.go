package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathwise/api/internal/logging"
)

func newTestScheduler() *Scheduler {
	return New(time.UTC, logging.Component(logging.Discard(), "scheduler"))
}

func TestScheduleIntervalRejectsNonPositive(t *testing.T) {
	s := newTestScheduler()
	_, err := s.ScheduleInterval("noop", 0, func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestScheduleIntervalRunsJob(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	_, err := s.ScheduleInterval("tick", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, s.Entries(), 1)

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestFailingJobKeepsScheduling(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	_, err := s.ScheduleInterval("flaky", time.Second, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestStopCancelsJobContext(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	_, err := s.ScheduleInterval("long", time.Second, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestScheduleSpecRejectsGarbage(t *testing.T) {
	s := newTestScheduler()
	_, err := s.ScheduleSpec("bad", "not a spec", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestFieldsPairsKeysAndValues(t *testing.T) {
	got := fields([]interface{}{"entry", 1, "next", "soon", "dangling"})
	assert.Equal(t, 1, got["entry"])
	assert.Equal(t, "soon", got["next"])
	assert.Len(t, got, 2)
}
