// ============================================================================
// backend/internal/reconcile/reconciler.go
// Full-roster reconciliation: fetch the roster, fan out the fallback
// resolver and grade lookups per student, merge into canonical records.
// ============================================================================

package reconcile

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"gradesync/backend/internal/resolver"
	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources"
)

// Reconciler produces the canonical ReconciledSet for one assignment scope.
type Reconciler struct {
	client   sources.Client
	resolver *resolver.Resolver
	fanOut   int
}

// NewReconciler creates a Reconciler. fanOut bounds the number of in-flight
// provider calls during the per-student fan-out; zero leaves it unbounded.
func NewReconciler(client sources.Client, fanOut int) *Reconciler {
	return &Reconciler{
		client:   client,
		resolver: resolver.New(client),
		fanOut:   fanOut,
	}
}

// slot is one student's in-flight reconciliation state. The signal and grade
// fields are each written by exactly one goroutine.
type slot struct {
	entry   shared.StudentRosterEntry
	flagged bool
	signal  shared.SubmissionSignal
	grade   *shared.EvaluationRecord
}

// Reconcile runs one full pass for the selection.
//
// Roster failure is fatal to the pass (shared.ErrRosterUnavailable); every
// per-student failure degrades to "no data" and never aborts the batch. The
// two lookups per student (submission resolution, existing grade) run
// concurrently with each other and across students.
func (r *Reconciler) Reconcile(ctx context.Context, sel shared.AssignmentSelection) (*shared.ReconciledSet, error) {
	roster, err := r.client.FetchRoster(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRosterUnavailable, err)
	}

	slots := make([]slot, 0, len(roster.Submitters)+len(roster.NonSubmitters))
	for _, entry := range roster.Submitters {
		slots = append(slots, slot{entry: entry, flagged: true})
	}
	for _, entry := range roster.NonSubmitters {
		slots = append(slots, slot{entry: entry})
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.fanOut > 0 {
		g.SetLimit(r.fanOut)
	}

	for i := range slots {
		i := i // per-iteration copy; required for pre-1.22 loop semantics
		g.Go(func() error {
			slots[i].signal = r.resolver.Resolve(gctx, sel.AssignmentID, slots[i].entry.StudentID)
			return nil
		})
		g.Go(func() error {
			grade, err := r.client.FetchExistingGrade(gctx, slots[i].entry.StudentID, sel.AssignmentID)
			if err != nil {
				// No pre-filled evaluation for this student; recorded, not escalated.
				log.Printf("WARN: grade lookup failed for student %s: %v", slots[i].entry.StudentID, err)
				return nil
			}
			slots[i].grade = grade
			return nil
		})
	}

	// Workers only ever return nil; Wait is for joining, not error collection.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeSlots(sel, slots), nil
}

// mergeSlots applies the OR-merge law: the roster flag and the resolved
// file-based signal are independent witnesses, and either one is sufficient
// proof of submission. The roster flag alone never supplies a submission id
// or file URL.
func mergeSlots(sel shared.AssignmentSelection, slots []slot) *shared.ReconciledSet {
	set := &shared.ReconciledSet{
		Selection:   sel,
		Evaluations: make(map[string]shared.EvaluationRecord),
	}

	for _, s := range slots {
		record := shared.ReconciledSubmission{
			StudentID: s.entry.StudentID,
			Name:      s.entry.Name,
			Email:     s.entry.Email,
			Submitted: s.flagged || s.signal.Usable(),
		}
		if s.signal.Usable() {
			record.SubmissionID = s.signal.SubmissionID
			record.FileURL = s.signal.FileURL
			record.SubmittedAt = s.signal.SubmittedAt
		}

		if record.Submitted {
			set.Submitted = append(set.Submitted, record)
		} else {
			set.NotSubmitted = append(set.NotSubmitted, record)
		}

		if s.grade != nil {
			set.Evaluations[s.entry.StudentID] = *s.grade
		}
	}

	set.SubmittedCount = len(set.Submitted)
	set.NotSubmittedCount = len(set.NotSubmitted)
	return set
}
