// ============================================================================
// backend/internal/aggregate/view.go
// Pure reducers over a reconciled set: timelines, counts, score statistics.
// No network calls, no mutation.
// ============================================================================

package aggregate

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"gradesync/backend/internal/shared"
)

// DateCount is one calendar day's submission count, for charting.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// ScoreStats summarizes the existing evaluations for an assignment.
type ScoreStats struct {
	Graded int     `json:"graded"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Summary is the derived, read-only view of one reconciled set.
type Summary struct {
	Total             int `json:"total"`
	SubmittedCount    int `json:"submitted_count"`
	NotSubmittedCount int `json:"not_submitted_count"`

	// OnTimeCount is the number of submissions with a known timestamp at or
	// before the due cutoff. Zero cutoff disables the distinction.
	OnTimeCount int `json:"on_time_count"`

	// PendingFeedback counts students who submitted but have no evaluation.
	PendingFeedback int `json:"pending_feedback"`

	Timeline []DateCount `json:"timeline"`
	Scores   ScoreStats  `json:"scores"`
}

// Summarize reduces a reconciled set into summary statistics. Deterministic
// given its input: the timeline is ordered by date, counts are set sizes.
func Summarize(set *shared.ReconciledSet, due time.Time) Summary {
	summary := Summary{
		Total:             set.SubmittedCount + set.NotSubmittedCount,
		SubmittedCount:    set.SubmittedCount,
		NotSubmittedCount: set.NotSubmittedCount,
		Timeline:          timeline(set.Submitted),
	}

	for _, record := range set.Submitted {
		if _, graded := set.Evaluations[record.StudentID]; !graded {
			summary.PendingFeedback++
		}
		if !due.IsZero() && !record.SubmittedAt.IsZero() && !record.SubmittedAt.After(due) {
			summary.OnTimeCount++
		}
	}

	summary.Scores = scoreStats(set.Evaluations)
	return summary
}

// timeline groups submissions by calendar day. Records without a known
// timestamp are left off the chart.
func timeline(submitted []shared.ReconciledSubmission) []DateCount {
	byDay := make(map[string]int)
	for _, record := range submitted {
		if record.SubmittedAt.IsZero() {
			continue
		}
		byDay[record.SubmittedAt.Format("2006-01-02")]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DateCount, 0, len(days))
	for _, day := range days {
		out = append(out, DateCount{Date: day, Count: byDay[day]})
	}
	return out
}

func scoreStats(evaluations map[string]shared.EvaluationRecord) ScoreStats {
	if len(evaluations) == 0 {
		return ScoreStats{}
	}

	scores := make([]float64, 0, len(evaluations))
	for _, record := range evaluations {
		scores = append(scores, record.Score)
	}

	// stats only errors on empty input, which is guarded above.
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	stdDev, _ := stats.StandardDeviation(scores)

	return ScoreStats{
		Graded: len(scores),
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
	}
}
