// ============================================================================
// backend/internal/shared/models.go
// Shared data models for the reconciliation and grading sync engine
// ============================================================================

package shared

import (
	"time"
)

// ============================================================================
// Selection Scope
// ============================================================================

// AssignmentSelection is the scope under which the roster, submissions and
// grades are all fetched. Changing any field invalidates every downstream
// reconciled result for the previous selection.
type AssignmentSelection struct {
	TrackID      string `json:"track_id"`
	CourseID     string `json:"course_id"`
	AssignmentID string `json:"assignment_id"`
}

// IsZero reports whether the selection is missing any of its three ids.
func (s AssignmentSelection) IsZero() bool {
	return s.TrackID == "" || s.CourseID == "" || s.AssignmentID == ""
}

// ============================================================================
// Roster Models
// ============================================================================

// StudentRosterEntry identifies one enrolled student. Sourced externally,
// keyed by StudentID.
type StudentRosterEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Roster is the enrolled-student list for one assignment scope, partitioned
// by the roster provider's own submitter flag.
type Roster struct {
	Submitters    []StudentRosterEntry `json:"submitters"`
	NonSubmitters []StudentRosterEntry `json:"non_submitters"`
}

// ============================================================================
// Submission Models
// ============================================================================

// SignalSource names the upstream that produced a SubmissionSignal.
type SignalSource string

const (
	SourcePrimary    SignalSource = "primary"
	SourceAlternate  SignalSource = "alternate"
	SourceRosterFlag SignalSource = "roster"
)

// SubmissionSignal is a single source's report about one student's
// submission. It is transient: produced per (student, source) lookup and
// consumed immediately by reconciliation, never persisted.
type SubmissionSignal struct {
	Source       SignalSource `json:"source"`
	SubmissionID string       `json:"submission_id,omitempty"`
	FileURL      string       `json:"file_url,omitempty"`
	SubmittedAt  time.Time    `json:"submitted_at,omitzero"`
}

// Usable reports whether the signal carries proof of a submission. Only a
// non-empty file URL counts; a bare submission id without a file is not
// conclusive.
func (s SubmissionSignal) Usable() bool {
	return s.FileURL != ""
}

// ReconciledSubmission is the canonical per-student record produced by a
// reconciliation pass. Submitted is true iff the roster flagged the student
// as a submitter OR some source resolved a file URL for them.
type ReconciledSubmission struct {
	StudentID    string    `json:"student_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Submitted    bool      `json:"submitted"`
	SubmissionID string    `json:"submission_id,omitempty"`
	FileURL      string    `json:"file_url,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at,omitzero"`
}

// ReconciledSet is the output of one full reconciliation pass: every roster
// entry classified, plus the pre-fetched evaluation map used by the
// Evaluation Coordinator to choose create-vs-update and pre-fill forms.
type ReconciledSet struct {
	Selection         AssignmentSelection         `json:"selection"`
	Submitted         []ReconciledSubmission      `json:"submitters"`
	NotSubmitted      []ReconciledSubmission      `json:"non_submitters"`
	SubmittedCount    int                         `json:"submitted_count"`
	NotSubmittedCount int                         `json:"not_submitted_count"`
	Evaluations       map[string]EvaluationRecord `json:"evaluations"`
}

// All returns the submitted and not-submitted records as one slice.
func (s *ReconciledSet) All() []ReconciledSubmission {
	out := make([]ReconciledSubmission, 0, len(s.Submitted)+len(s.NotSubmitted))
	out = append(out, s.Submitted...)
	out = append(out, s.NotSubmitted...)
	return out
}

// Find returns the reconciled record for a student id, if present.
func (s *ReconciledSet) Find(studentID string) (ReconciledSubmission, bool) {
	for _, rec := range s.Submitted {
		if rec.StudentID == studentID {
			return rec, true
		}
	}
	for _, rec := range s.NotSubmitted {
		if rec.StudentID == studentID {
			return rec, true
		}
	}
	return ReconciledSubmission{}, false
}

// ============================================================================
// Evaluation Models
// ============================================================================

// EvaluationRecord is a grade/feedback record in the grading store. Identity
// is the (StudentID, AssignmentID) pair; ID is the opaque handle the store
// assigns on create and is empty until then.
type EvaluationRecord struct {
	ID           string    `json:"id,omitempty"`
	StudentID    string    `json:"student"`
	AssignmentID string    `json:"assignment"`
	CourseID     string    `json:"course"`
	TrackID      string    `json:"track"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	SubmissionID string    `json:"submission,omitempty"`
	FileURL      string    `json:"file_url,omitempty"`
	GradedDate   time.Time `json:"graded_date,omitzero"`
}

// Exists reports whether the grading store already holds this record.
func (e EvaluationRecord) Exists() bool {
	return e.ID != ""
}
