// ============================================================================
// backend/internal/engine/engine.go
// Facade over the reconciler, evaluation coordinator and aggregate view.
// This is the surface the gateway (or any other caller) consumes.
// ============================================================================

package engine

import (
	"context"
	"log"
	"time"

	"gradesync/backend/internal/aggregate"
	"gradesync/backend/internal/evaluation"
	"gradesync/backend/internal/reconcile"
	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources"
)

// Engine wires the reconciliation runner and the evaluation coordinator
// against one provider client.
type Engine struct {
	runner      *reconcile.Runner
	coordinator *evaluation.Coordinator
}

func New(client sources.Client, config *shared.EngineConfig) *Engine {
	return &Engine{
		runner:      reconcile.NewRunner(reconcile.NewReconciler(client, config.FanOutLimit)),
		coordinator: evaluation.NewCoordinator(client),
	}
}

// Reconcile runs a full reconciliation pass for the selection. Starting a
// pass supersedes any pass still in flight for an older selection.
func (e *Engine) Reconcile(ctx context.Context, sel shared.AssignmentSelection) (*shared.ReconciledSet, error) {
	return e.runner.Run(ctx, sel)
}

// Latest returns the most recent completed set for the selection, or nil.
func (e *Engine) Latest(sel shared.AssignmentSelection) *shared.ReconciledSet {
	return e.runner.Latest(sel)
}

// SubmitEvaluation writes a grade and, on success, re-reconciles the same
// selection so downstream counts and pre-filled state reflect the write.
//
// A failed re-reconciliation does not undo the committed write; the stale
// set is simply kept and the failure logged.
func (e *Engine) SubmitEvaluation(ctx context.Context, req evaluation.Request) (shared.EvaluationRecord, error) {
	record, err := e.coordinator.Submit(ctx, req)
	if err != nil {
		return record, err
	}

	if _, err := e.runner.Run(ctx, req.Selection); err != nil {
		log.Printf("WARN: post-write reconciliation failed for assignment %s: %v",
			req.Selection.AssignmentID, err)
	}

	return record, nil
}

// Summarize derives the read-only aggregate view of a reconciled set.
func (e *Engine) Summarize(set *shared.ReconciledSet, due time.Time) aggregate.Summary {
	return aggregate.Summarize(set, due)
}
