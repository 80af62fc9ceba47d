// ============================================================================
// backend/internal/shared/errors.go
// Error taxonomy for the reconciliation and grading sync engine
// ============================================================================

package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers transport failures, timeouts and 5xx
	// responses from any provider. Retryable by the caller.
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")

	// ErrRosterUnavailable is fatal to a reconciliation pass: the roster is
	// load-bearing and has no fallback source.
	ErrRosterUnavailable = errors.New("roster unavailable")

	// ErrValidationRejected means the grading store refused a write.
	ErrValidationRejected = errors.New("grading store rejected the write")

	// ErrInvalidScore is a client-side input error; no network call is made.
	ErrInvalidScore = errors.New("score must be a number between 0 and 10")

	// ErrAlreadyInFlight rejects a second evaluation submission for the same
	// (student, assignment) pair while one is outstanding.
	ErrAlreadyInFlight = errors.New("an evaluation for this student and assignment is already in flight")

	// ErrStaleContext marks a reconciliation pass superseded by a newer
	// selection. Its results are discarded, never surfaced to the user.
	ErrStaleContext = errors.New("assignment selection changed during reconciliation")
)

// UpstreamError carries which source failed and how. It matches
// ErrUpstreamUnavailable under errors.Is.
type UpstreamError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s source returned status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s source unreachable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// ValidationError carries the grading store's own rejection message so it can
// be surfaced verbatim. It matches ErrValidationRejected under errors.Is.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return ErrValidationRejected.Error()
	}
	return fmt.Sprintf("grading store rejected the write: %s", e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationRejected }
