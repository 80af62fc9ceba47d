// ============================================================================
// backend/internal/resolver/resolver.go
// Fallback resolution of one student's submission truth across the primary
// and alternate submission sources.
// ============================================================================

package resolver

import (
	"context"
	"log"

	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources"
)

// Resolver folds the ordered source chain (primary, then alternate) into a
// single SubmissionSignal for one student.
//
// Errors never leave this layer: a transport failure from either source is
// logged and degrades to "no data from that source". The caller always gets
// a signal, possibly empty.
type Resolver struct {
	client sources.Client
}

func New(client sources.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the student's submission signal. Primary always wins when
// it is conclusive (carries a file URL); the alternate source is only
// consulted when primary yields nothing usable. When neither source is
// conclusive the returned signal is empty: submitted-unknown here, decided
// by the roster flag during the merge.
func (r *Resolver) Resolve(ctx context.Context, assignmentID, studentID string) shared.SubmissionSignal {
	primary, err := r.client.FetchPrimarySubmission(ctx, assignmentID, studentID)
	if err != nil {
		log.Printf("WARN: primary submission lookup failed for student %s: %v", studentID, err)
	}
	if primary != nil && primary.Usable() {
		return *primary
	}

	alternate, err := r.client.FetchAlternateSubmission(ctx, studentID, assignmentID)
	if err != nil {
		log.Printf("WARN: alternate submission lookup failed for student %s: %v", studentID, err)
	}
	if alternate != nil && alternate.Usable() {
		if primary != nil && primary.SubmissionID != "" && primary.SubmissionID != alternate.SubmissionID {
			// The two sources name different submissions. Primary was not
			// conclusive so the alternate wins, but the mismatch is worth a
			// trace in the logs.
			log.Printf("WARN: submission id mismatch for student %s: primary=%s alternate=%s",
				studentID, primary.SubmissionID, alternate.SubmissionID)
		}
		return *alternate
	}

	return shared.SubmissionSignal{}
}
