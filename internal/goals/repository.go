package goals

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("goal not found")
	ErrInvalidInput = errors.New("invalid goal input")
)

// namespace is one user's goals. Its mutex covers every read-modify-write of
// milestones and progress so the pair is never observed out of step.
type namespace struct {
	mu    sync.Mutex
	goals map[string]*Goal
	order []string
}

// Repository stores goals per user. Users never contend with each other:
// the top-level lock only guards the namespace map.
type Repository struct {
	mu       sync.RWMutex
	spaces   map[string]*namespace
	template Template
	now      func() time.Time
}

func NewRepository(template Template) *Repository {
	return &Repository{
		spaces:   make(map[string]*namespace),
		template: template,
		now:      time.Now,
	}
}

func (r *Repository) space(userID string, create bool) *namespace {
	r.mu.RLock()
	ns, ok := r.spaces[userID]
	r.mu.RUnlock()
	if ok || !create {
		return ns
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ns, ok = r.spaces[userID]; ok {
		return ns
	}
	ns = &namespace{goals: make(map[string]*Goal)}
	r.spaces[userID] = ns
	return ns
}

func (r *Repository) Create(userID string, in CreateInput) (Goal, error) {
	title := strings.TrimSpace(in.Title)
	timeline := strings.TrimSpace(in.Timeline)
	if title == "" || timeline == "" {
		return Goal{}, fmt.Errorf("%w: title and timeline are required", ErrInvalidInput)
	}

	now := r.now().UTC()
	milestones := r.template.Milestones(title)
	goal := &Goal{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Timeline:    timeline,
		Milestones:  milestones,
		Progress:    ComputeProgress(milestones),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ns := r.space(userID, true)
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.goals[goal.ID] = goal
	ns.order = append(ns.order, goal.ID)
	return goal.clone(), nil
}

// List returns the user's goals in insertion order.
func (r *Repository) List(userID string) []Summary {
	ns := r.space(userID, false)
	if ns == nil {
		return []Summary{}
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]Summary, 0, len(ns.order))
	for _, id := range ns.order {
		out = append(out, ns.goals[id].Summary())
	}
	return out
}

func (r *Repository) Get(userID, goalID string) (Goal, error) {
	ns := r.space(userID, false)
	if ns == nil {
		return Goal{}, ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	goal, ok := ns.goals[goalID]
	if !ok {
		return Goal{}, ErrNotFound
	}
	return goal.clone(), nil
}

// Delete removes the goal. Deleting twice reports ErrNotFound the second time.
func (r *Repository) Delete(userID, goalID string) error {
	ns := r.space(userID, false)
	if ns == nil {
		return ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.goals[goalID]; !ok {
		return ErrNotFound
	}
	delete(ns.goals, goalID)
	for i, id := range ns.order {
		if id == goalID {
			ns.order = append(ns.order[:i], ns.order[i+1:]...)
			break
		}
	}
	return nil
}

// ToggleMilestone sets the completion flag of one week and recomputes progress
// in the same critical section. Setting a flag to its current value changes nothing.
func (r *Repository) ToggleMilestone(userID, goalID string, week int, completed bool) (Goal, error) {
	ns := r.space(userID, false)
	if ns == nil {
		return Goal{}, ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	goal, ok := ns.goals[goalID]
	if !ok {
		return Goal{}, ErrNotFound
	}

	idx := -1
	for i, m := range goal.Milestones {
		if m.Week == week {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Goal{}, fmt.Errorf("week %d: %w", week, ErrNotFound)
	}

	if goal.Milestones[idx].Completed != completed {
		goal.Milestones[idx].Completed = completed
		goal.Progress = ComputeProgress(goal.Milestones)
		goal.UpdatedAt = r.now().UTC()
	}
	return goal.clone(), nil
}
