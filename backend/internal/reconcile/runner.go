// ============================================================================
// backend/internal/reconcile/runner.go
// Current-selection holder: serializes pass results behind a generation
// token so a stale pass can never overwrite state for a newer selection.
// ============================================================================

package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"gradesync/backend/internal/shared"
)

// Runner owns the canonical ReconciledSet between passes. Starting a pass
// supersedes any pass still in flight: the old pass is cancelled and, even
// if it races to completion, its results are dropped because its generation
// token no longer matches.
type Runner struct {
	reconciler *Reconciler

	mu         sync.Mutex
	generation uuid.UUID
	selection  shared.AssignmentSelection
	cancel     context.CancelFunc
	latest     *shared.ReconciledSet
}

func NewRunner(reconciler *Reconciler) *Runner {
	return &Runner{reconciler: reconciler}
}

// Run reconciles the selection and, if this pass is still the current one
// when it finishes, installs the result as the canonical set. A superseded
// pass returns shared.ErrStaleContext and leaves no trace.
func (r *Runner) Run(ctx context.Context, sel shared.AssignmentSelection) (*shared.ReconciledSet, error) {
	r.mu.Lock()
	generation := uuid.New()
	r.generation = generation
	r.selection = sel
	if r.cancel != nil {
		r.cancel()
	}
	passCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	set, err := r.reconciler.Reconcile(passCtx, sel)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generation != generation {
		cancel()
		return nil, shared.ErrStaleContext
	}
	if err != nil {
		return nil, err
	}

	r.latest = set
	return set, nil
}

// Latest returns the canonical set for the given selection, or nil when no
// completed pass matches it.
func (r *Runner) Latest(sel shared.AssignmentSelection) *shared.ReconciledSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil || r.latest.Selection != sel {
		return nil
	}
	return r.latest
}
