// Package progress derives display metrics from a goal's milestone state.
package progress

import (
	"fmt"
	"math"
	"time"

	"pathwise/api/internal/checkin"
	"pathwise/api/internal/goals"
)

// nominalWeeks is the cadence velocity assumes, independent of elapsed time.
const nominalWeeks = 8

type Report struct {
	Completion          int       `json:"completion"`
	Velocity            string    `json:"velocity"`
	Summary             string    `json:"summary"`
	Progress            int       `json:"progress"`
	MilestonesCompleted int       `json:"milestonesCompleted"`
	TotalMilestones     int       `json:"totalMilestones"`
	LastUpdated         time.Time `json:"lastUpdated"`
	ReportedProgress    *int      `json:"reportedProgress,omitempty"`
}

// Completion recomputes the stored progress value with the same formula.
func Completion(goal goals.Goal) int {
	return goals.ComputeProgress(goal.Milestones)
}

func Velocity(goal goals.Goal) string {
	done := goals.CompletedCount(goal.Milestones)
	total := len(goal.Milestones)
	periods := (total + nominalWeeks - 1) / nominalWeeks
	if periods < 1 {
		periods = 1
	}
	perWeek := int(math.Round(float64(done) / float64(periods)))
	if perWeek < 1 {
		perWeek = 1
	}
	return fmt.Sprintf("%d modules/week", perWeek)
}

func Summary(goal goals.Goal) string {
	return fmt.Sprintf("You have completed %d of %d milestones. Keep pushing toward \"%s\".",
		goals.CompletedCount(goal.Milestones), len(goal.Milestones), goal.Title)
}

// Build assembles the full report. Check-ins only feed ReportedProgress:
// the latest progressUpdate recorded for this goal.
func Build(goal goals.Goal, records []checkin.Record) Report {
	report := Report{
		Completion:          Completion(goal),
		Velocity:            Velocity(goal),
		Summary:             Summary(goal),
		Progress:            goal.Progress,
		MilestonesCompleted: goals.CompletedCount(goal.Milestones),
		TotalMilestones:     len(goal.Milestones),
		LastUpdated:         goal.UpdatedAt,
	}
	if latest, ok := LatestReported(goal.ID, records); ok {
		report.ReportedProgress = &latest
	}
	return report
}

// LatestReported returns the most recent progressUpdate among records for goalID.
// Ties on CreatedAt resolve to the later record in insertion order.
func LatestReported(goalID string, records []checkin.Record) (int, bool) {
	var (
		found  bool
		value  int
		latest time.Time
	)
	for _, r := range records {
		if r.GoalID != goalID || r.ProgressUpdate == nil {
			continue
		}
		if !found || !r.CreatedAt.Before(latest) {
			found = true
			value = *r.ProgressUpdate
			latest = r.CreatedAt
		}
	}
	return value, found
}
