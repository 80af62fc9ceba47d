// Package sourcestest provides a scriptable in-memory sources.Client for
// tests. Each operation delegates to an optional func field; unset fields
// behave as "no data". Call counts are tracked per operation.
package sourcestest

import (
	"context"
	"sync"

	"gradesync/backend/internal/shared"
)

type Fake struct {
	RosterFunc    func(ctx context.Context, sel shared.AssignmentSelection) (*shared.Roster, error)
	PrimaryFunc   func(ctx context.Context, assignmentID, studentID string) (*shared.SubmissionSignal, error)
	AlternateFunc func(ctx context.Context, studentID, assignmentID string) (*shared.SubmissionSignal, error)
	GradeFunc     func(ctx context.Context, studentID, assignmentID string) (*shared.EvaluationRecord, error)
	UpsertFunc    func(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error)

	mu    sync.Mutex
	calls map[string]int
}

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how many times the named operation ran
// (roster, primary, alternate, grade, upsert).
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) FetchRoster(ctx context.Context, sel shared.AssignmentSelection) (*shared.Roster, error) {
	f.record("roster")
	if f.RosterFunc == nil {
		return &shared.Roster{}, nil
	}
	return f.RosterFunc(ctx, sel)
}

func (f *Fake) FetchPrimarySubmission(ctx context.Context, assignmentID, studentID string) (*shared.SubmissionSignal, error) {
	f.record("primary")
	if f.PrimaryFunc == nil {
		return nil, nil
	}
	return f.PrimaryFunc(ctx, assignmentID, studentID)
}

func (f *Fake) FetchAlternateSubmission(ctx context.Context, studentID, assignmentID string) (*shared.SubmissionSignal, error) {
	f.record("alternate")
	if f.AlternateFunc == nil {
		return nil, nil
	}
	return f.AlternateFunc(ctx, studentID, assignmentID)
}

func (f *Fake) FetchExistingGrade(ctx context.Context, studentID, assignmentID string) (*shared.EvaluationRecord, error) {
	f.record("grade")
	if f.GradeFunc == nil {
		return nil, nil
	}
	return f.GradeFunc(ctx, studentID, assignmentID)
}

func (f *Fake) UpsertGrade(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error) {
	f.record("upsert")
	if f.UpsertFunc == nil {
		saved := record
		if !exists {
			saved.ID = "generated-1"
		}
		return &saved, nil
	}
	return f.UpsertFunc(ctx, record, exists)
}
