package aggregate

import (
	"math"
	"testing"
	"time"

	"gradesync/backend/internal/shared"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func sampleSet() *shared.ReconciledSet {
	return &shared.ReconciledSet{
		Submitted: []shared.ReconciledSubmission{
			{StudentID: "1", Submitted: true, SubmittedAt: day(2, 10)},
			{StudentID: "2", Submitted: true, SubmittedAt: day(2, 16)},
			{StudentID: "3", Submitted: true, SubmittedAt: day(4, 9)},
			{StudentID: "4", Submitted: true}, // roster flag only, no timestamp
		},
		NotSubmitted: []shared.ReconciledSubmission{
			{StudentID: "5"},
		},
		SubmittedCount:    4,
		NotSubmittedCount: 1,
		Evaluations: map[string]shared.EvaluationRecord{
			"1": {ID: "a", StudentID: "1", Score: 8},
			"3": {ID: "b", StudentID: "3", Score: 6},
		},
	}
}

func TestSummarizeCounts(t *testing.T) {
	summary := Summarize(sampleSet(), time.Time{})

	if summary.Total != 5 || summary.SubmittedCount != 4 || summary.NotSubmittedCount != 1 {
		t.Errorf("Unexpected counts: %+v", summary)
	}
	// Students 2 and 4 submitted without an evaluation.
	if summary.PendingFeedback != 2 {
		t.Errorf("Expected 2 pending feedback, got %d", summary.PendingFeedback)
	}
	if summary.OnTimeCount != 0 {
		t.Errorf("Zero cutoff must disable the on-time count, got %d", summary.OnTimeCount)
	}
}

func TestSummarizeTimeline(t *testing.T) {
	summary := Summarize(sampleSet(), time.Time{})

	want := []DateCount{
		{Date: "2026-03-02", Count: 2},
		{Date: "2026-03-04", Count: 1},
	}
	if len(summary.Timeline) != len(want) {
		t.Fatalf("Unexpected timeline: %+v", summary.Timeline)
	}
	for i := range want {
		if summary.Timeline[i] != want[i] {
			t.Errorf("Timeline[%d] = %+v, want %+v", i, summary.Timeline[i], want[i])
		}
	}
}

func TestSummarizeDueCutoff(t *testing.T) {
	// Cutoff at end of March 3rd: the two March 2nd submissions count, the
	// March 4th one is late, the undated one cannot be classified.
	summary := Summarize(sampleSet(), day(3, 23))

	if summary.OnTimeCount != 2 {
		t.Errorf("Expected 2 on-time submissions, got %d", summary.OnTimeCount)
	}

	// A submission exactly at the cutoff is on time.
	exact := Summarize(&shared.ReconciledSet{
		Submitted:      []shared.ReconciledSubmission{{StudentID: "1", Submitted: true, SubmittedAt: day(3, 23)}},
		SubmittedCount: 1,
	}, day(3, 23))
	if exact.OnTimeCount != 1 {
		t.Errorf("Expected boundary submission on time, got %d", exact.OnTimeCount)
	}
}

func TestSummarizeScores(t *testing.T) {
	summary := Summarize(sampleSet(), time.Time{})

	if summary.Scores.Graded != 2 {
		t.Fatalf("Expected 2 graded, got %d", summary.Scores.Graded)
	}
	if math.Abs(summary.Scores.Mean-7) > 1e-9 {
		t.Errorf("Expected mean 7, got %v", summary.Scores.Mean)
	}
	if math.Abs(summary.Scores.Median-7) > 1e-9 {
		t.Errorf("Expected median 7, got %v", summary.Scores.Median)
	}
	if math.Abs(summary.Scores.StdDev-1) > 1e-9 {
		t.Errorf("Expected stddev 1, got %v", summary.Scores.StdDev)
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	summary := Summarize(&shared.ReconciledSet{Evaluations: map[string]shared.EvaluationRecord{}}, time.Time{})

	if summary.Total != 0 || summary.PendingFeedback != 0 || len(summary.Timeline) != 0 {
		t.Errorf("Expected empty summary, got: %+v", summary)
	}
	if summary.Scores != (ScoreStats{}) {
		t.Errorf("Expected zero score stats, got: %+v", summary.Scores)
	}
}
