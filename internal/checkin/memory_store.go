package checkin

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in one append-only slice per user.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
	configs map[string]Config
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]Record),
		configs: make(map[string]Config),
	}
}

func (s *MemoryStore) AppendRecord(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = append(s.records[record.UserID], cloneRecord(record))
	return nil
}

func (s *MemoryStore) ListRecords(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records[userID]))
	for _, r := range s.records[userID] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (s *MemoryStore) ListRecordsForGoal(_ context.Context, userID, goalID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Record{}
	for _, r := range s.records[userID] {
		if r.GoalID == goalID {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) GetConfig(_ context.Context, userID string) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	if !ok {
		return Config{}, ErrNotFound
	}
	return cloneConfig(cfg), nil
}

func (s *MemoryStore) SaveConfig(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.UserID] = cloneConfig(cfg)
	return nil
}

// ListDueConfigs returns configs with reminders on whose NextCheckin is at or before at,
// ordered by NextCheckin.
func (s *MemoryStore) ListDueConfigs(_ context.Context, at time.Time) ([]Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []Config
	for _, cfg := range s.configs {
		if cfg.RemindersEnabled && cfg.NextCheckin != nil && !cfg.NextCheckin.After(at) {
			due = append(due, cloneConfig(cfg))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextCheckin.Before(*due[j].NextCheckin)
	})
	return due, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func cloneRecord(r Record) Record {
	if r.ProgressUpdate != nil {
		value := *r.ProgressUpdate
		r.ProgressUpdate = &value
	}
	return r
}

func cloneConfig(cfg Config) Config {
	if cfg.LastCheckin != nil {
		value := *cfg.LastCheckin
		cfg.LastCheckin = &value
	}
	if cfg.NextCheckin != nil {
		value := *cfg.NextCheckin
		cfg.NextCheckin = &value
	}
	return cfg
}
