// ============================================================================
// backend/internal/evaluation/coordinator.go
// Create-or-update state machine for grade/feedback writes.
// ============================================================================

package evaluation

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources"
)

// Request carries one grade submission. Prior is the evaluation pre-fetched
// by the reconciler (see ReconciledSet.Evaluations); it is deliberately not
// re-queried at submit time so the create-vs-update decision cannot race
// against reconciliation.
type Request struct {
	Selection shared.AssignmentSelection
	StudentID string

	// RawScore is the user's input, validated client-side before any
	// network call is made.
	RawScore string
	Feedback string

	// Prior, when set, switches the dispatch from create to update.
	Prior *shared.EvaluationRecord

	// SubmissionID and FileURL come from the student's reconciled record
	// and may both be empty; the write proceeds regardless.
	SubmissionID string
	FileURL      string
}

type inflightKey struct {
	studentID    string
	assignmentID string
}

// Coordinator is the only writer of grade data. It guarantees at most one
// in-flight write per (student, assignment) pair and issues exactly one
// network mutation per call; retries belong to the caller.
type Coordinator struct {
	client sources.Client

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

func NewCoordinator(client sources.Client) *Coordinator {
	return &Coordinator{
		client:   client,
		inflight: make(map[inflightKey]struct{}),
	}
}

// Submit validates the request and issues the create or update call.
//
// On failure the returned record is the attempted payload, preserved so the
// caller can retry without re-entering the score and feedback. On success it
// is the record as the grading store saved it.
func (c *Coordinator) Submit(ctx context.Context, req Request) (shared.EvaluationRecord, error) {
	score, err := ParseScore(req.RawScore)
	if err != nil {
		return shared.EvaluationRecord{}, err
	}

	key := inflightKey{studentID: req.StudentID, assignmentID: req.Selection.AssignmentID}
	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return shared.EvaluationRecord{}, shared.ErrAlreadyInFlight
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	record := shared.EvaluationRecord{
		StudentID:    req.StudentID,
		AssignmentID: req.Selection.AssignmentID,
		CourseID:     req.Selection.CourseID,
		TrackID:      req.Selection.TrackID,
		Score:        score,
		Feedback:     strings.TrimSpace(req.Feedback),
		SubmissionID: req.SubmissionID,
		FileURL:      req.FileURL,
		GradedDate:   time.Now().UTC(),
	}

	exists := req.Prior != nil && req.Prior.Exists()
	if exists {
		record.ID = req.Prior.ID
		if record.SubmissionID == "" {
			// The prior evaluation may know the submission even when
			// reconciliation could not resolve it.
			record.SubmissionID = req.Prior.SubmissionID
		}
	}

	if record.SubmissionID == "" {
		// Grade identity is (student, assignment); an unresolved submission
		// id does not block the write.
		log.Printf("WARN: submitting grade for student %s on assignment %s without a resolved submission id",
			req.StudentID, req.Selection.AssignmentID)
	}

	saved, err := c.client.UpsertGrade(ctx, record, exists)
	if err != nil {
		return record, err
	}
	return *saved, nil
}

// ParseScore validates a raw score string: it must parse to a finite number
// in [0, 10] inclusive.
func ParseScore(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, shared.ErrInvalidScore
	}
	if value < 0 || value > 10 {
		return 0, shared.ErrInvalidScore
	}
	return value, nil
}
