package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"gradesync/backend/internal/evaluation"
	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources/sourcestest"
)

// gradeStore is a fake provider whose grade endpoint reflects its own writes,
// so a post-write reconciliation observes the new evaluation.
type gradeStore struct {
	mu      sync.Mutex
	nextID  int
	records map[string]shared.EvaluationRecord // keyed by student id
}

func newGradeStore() *gradeStore {
	return &gradeStore{nextID: 1, records: make(map[string]shared.EvaluationRecord)}
}

func (s *gradeStore) fetch(ctx context.Context, studentID, assignmentID string) (*shared.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[studentID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *gradeStore) upsert(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := record
	if !exists {
		saved.ID = strconv.Itoa(s.nextID)
		s.nextID++
	}
	s.records[record.StudentID] = saved
	return &saved, nil
}

func newTestEngine(store *gradeStore) (*Engine, *sourcestest.Fake) {
	fake := &sourcestest.Fake{
		RosterFunc: func(ctx context.Context, sel shared.AssignmentSelection) (*shared.Roster, error) {
			return &shared.Roster{
				Submitters: []shared.StudentRosterEntry{{StudentID: "1", Name: "Ana"}},
			}, nil
		},
		PrimaryFunc: func(ctx context.Context, assignmentID, studentID string) (*shared.SubmissionSignal, error) {
			return &shared.SubmissionSignal{Source: shared.SourcePrimary, SubmissionID: "101", FileURL: "f1"}, nil
		},
		GradeFunc:  store.fetch,
		UpsertFunc: store.upsert,
	}
	return New(fake, &shared.EngineConfig{FanOutLimit: 4}), fake
}

func TestSubmitThenReconcileReflectsWrite(t *testing.T) {
	ctx := context.Background()
	sel := shared.AssignmentSelection{TrackID: "7", CourseID: "12", AssignmentID: "42"}
	store := newGradeStore()
	eng, _ := newTestEngine(store)

	set, err := eng.Reconcile(ctx, sel)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(set.Evaluations) != 0 {
		t.Fatalf("Expected no evaluations before the first write")
	}

	// First write: no prior record means a create.
	record, err := eng.SubmitEvaluation(ctx, evaluation.Request{
		Selection: sel, StudentID: "1", RawScore: "8", Feedback: "good", SubmissionID: "101",
	})
	if err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	if record.ID == "" {
		t.Fatal("Expected the store to assign an id on create")
	}

	// The automatic post-write pass already picked the evaluation up.
	latest := eng.Latest(sel)
	if latest == nil {
		t.Fatal("Expected a canonical set after the post-write pass")
	}
	prior, ok := latest.Evaluations["1"]
	if !ok || prior.Score != 8 || prior.Feedback != "good" {
		t.Fatalf("Expected the write reflected in reconciled state, got: %+v", latest.Evaluations)
	}

	// Second write targets the existing record via the pre-fetched prior.
	updated, err := eng.SubmitEvaluation(ctx, evaluation.Request{
		Selection: sel, StudentID: "1", RawScore: "9", Feedback: "even better", Prior: &prior,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ID != prior.ID {
		t.Errorf("Update must keep the record id, got %s want %s", updated.ID, prior.ID)
	}

	refreshed := eng.Latest(sel)
	if got := refreshed.Evaluations["1"]; got.Score != 9 || got.Feedback != "even better" {
		t.Errorf("Expected updated state after re-reconciliation, got: %+v", got)
	}
}

func TestSubmitFailureDoesNotReconcile(t *testing.T) {
	ctx := context.Background()
	sel := shared.AssignmentSelection{TrackID: "7", CourseID: "12", AssignmentID: "42"}
	store := newGradeStore()
	eng, fake := newTestEngine(store)

	fake.UpsertFunc = func(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error) {
		return nil, &shared.ValidationError{Detail: "nope"}
	}

	before := fake.Calls("roster")
	_, err := eng.SubmitEvaluation(ctx, evaluation.Request{Selection: sel, StudentID: "1", RawScore: "5"})
	if !errors.Is(err, shared.ErrValidationRejected) {
		t.Fatalf("Expected validation rejection, got: %v", err)
	}
	if fake.Calls("roster") != before {
		t.Error("A failed write must not trigger re-reconciliation")
	}
}
