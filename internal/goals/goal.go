// Package goals holds per-user goals and their weekly milestones.
package goals

import (
	"fmt"
	"math"
	"time"
)

type Milestone struct {
	Week      int    `json:"week"`
	Objective string `json:"objective"`
	Completed bool   `json:"completed"`
}

type Goal struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Timeline    string      `json:"timeline"`
	Milestones  []Milestone `json:"milestones"`
	Progress    int         `json:"progress"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Summary is the list view of a goal.
type Summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

type CreateInput struct {
	Title       string
	Description string
	Timeline    string
}

// Template describes the milestones every new goal starts with.
type Template struct {
	Weeks           int
	PreCompleted    int
	ObjectiveFormat string
}

func DefaultTemplate() Template {
	return Template{
		Weeks:           8,
		PreCompleted:    2,
		ObjectiveFormat: "Milestone %d for %s",
	}
}

// Milestones builds weeks 1..Weeks for title, the first PreCompleted already done.
func (t Template) Milestones(title string) []Milestone {
	weeks := t.Weeks
	if weeks < 1 {
		weeks = 1
	}
	format := t.ObjectiveFormat
	if format == "" {
		format = DefaultTemplate().ObjectiveFormat
	}
	milestones := make([]Milestone, weeks)
	for i := range milestones {
		milestones[i] = Milestone{
			Week:      i + 1,
			Objective: fmt.Sprintf(format, i+1, title),
			Completed: i < t.PreCompleted,
		}
	}
	return milestones
}

// CompletedCount reports how many milestones are done.
func CompletedCount(milestones []Milestone) int {
	done := 0
	for _, m := range milestones {
		if m.Completed {
			done++
		}
	}
	return done
}

// ComputeProgress is round(100 * completed / total), 0 for an empty list.
// It is the only way Goal.Progress is ever derived.
func ComputeProgress(milestones []Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(CompletedCount(milestones)) / float64(len(milestones))))
}

// NextObjective is the first incomplete milestone's objective, or the first
// milestone's when everything is done.
func (g Goal) NextObjective() string {
	for _, m := range g.Milestones {
		if !m.Completed {
			return m.Objective
		}
	}
	if len(g.Milestones) > 0 {
		return g.Milestones[0].Objective
	}
	return ""
}

func (g Goal) Summary() Summary {
	return Summary{ID: g.ID, Title: g.Title, Progress: g.Progress}
}

func (g Goal) clone() Goal {
	out := g
	out.Milestones = append([]Milestone(nil), g.Milestones...)
	return out
}
