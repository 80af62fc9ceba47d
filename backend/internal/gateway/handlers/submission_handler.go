package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gradesync/backend/internal/engine"
	"gradesync/backend/internal/evaluation"
	"gradesync/backend/internal/gateway/util"
	"gradesync/backend/internal/shared"
)

// SubmissionHandler exposes the reconciliation engine over HTTP.
type SubmissionHandler struct {
	Engine *engine.Engine
}

// RESTSubmitEvaluationRequest mirrors the JSON input for POST /evaluations
type RESTSubmitEvaluationRequest struct {
	StudentID    string `json:"student_id"`
	TrackID      string `json:"track_id"`
	CourseID     string `json:"course_id"`
	AssignmentID string `json:"assignment_id"`
	Score        string `json:"score"`
	Feedback     string `json:"feedback"`
}

// selectionFromURL builds the assignment scope from the route parameters.
func selectionFromURL(r *http.Request) shared.AssignmentSelection {
	return shared.AssignmentSelection{
		TrackID:      chi.URLParam(r, "track_id"),
		CourseID:     chi.URLParam(r, "course_id"),
		AssignmentID: chi.URLParam(r, "assignment_id"),
	}
}

// GetSubmissions handles
// GET /submissions/track/{track_id}/course/{course_id}/assignment/{assignment_id}
// Runs a reconciliation pass and returns the canonical set.
// Query Params: status (all | submitted | not-submitted)
func (h *SubmissionHandler) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromURL(r)
	if sel.IsZero() {
		util.WriteJSONError(w, http.StatusBadRequest, "track_id, course_id and assignment_id are required")
		return
	}

	set, err := h.Engine.Reconcile(r.Context(), sel)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	submitters := set.Submitted
	nonSubmitters := set.NotSubmitted
	switch r.URL.Query().Get("status") {
	case "submitted":
		nonSubmitters = nil
	case "not-submitted":
		submitters = nil
	}

	response := map[string]interface{}{
		"success":             true,
		"submitters":          submitters,
		"non_submitters":      nonSubmitters,
		"submitted_count":     set.SubmittedCount,
		"not_submitted_count": set.NotSubmittedCount,
		"evaluations":         set.Evaluations,
	}

	util.WriteJSON(w, http.StatusOK, response)
}

// GetSummary handles
// GET /submissions/track/{track_id}/course/{course_id}/assignment/{assignment_id}/summary
// Query Params: due (RFC3339, optional) - cutoff for the on-time count
func (h *SubmissionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromURL(r)
	if sel.IsZero() {
		util.WriteJSONError(w, http.StatusBadRequest, "track_id, course_id and assignment_id are required")
		return
	}

	var due time.Time
	if raw := r.URL.Query().Get("due"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			util.WriteJSONError(w, http.StatusBadRequest, "due must be an RFC3339 timestamp")
			return
		}
		due = parsed
	}

	// Reuse the current pass when it matches; reconcile otherwise.
	set := h.Engine.Latest(sel)
	if set == nil {
		fresh, err := h.Engine.Reconcile(r.Context(), sel)
		if err != nil {
			util.HandleEngineError(w, err)
			return
		}
		set = fresh
	}

	summary := h.Engine.Summarize(set, due)

	response := map[string]interface{}{
		"success": true,
		"summary": summary,
	}

	util.WriteJSON(w, http.StatusOK, response)
}

// SubmitEvaluation handles POST /evaluations
// Dispatches a create or update against the grading store, using the current
// pass's pre-fetched evaluation map to pick the transition.
func (h *SubmissionHandler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var reqBody RESTSubmitEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sel := shared.AssignmentSelection{
		TrackID:      reqBody.TrackID,
		CourseID:     reqBody.CourseID,
		AssignmentID: reqBody.AssignmentID,
	}
	if sel.IsZero() || reqBody.StudentID == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "student_id, track_id, course_id and assignment_id are required")
		return
	}

	// The prior record and submission identity come from the reconciled
	// state, not a fresh query; reconcile first when no pass matches.
	set := h.Engine.Latest(sel)
	if set == nil {
		fresh, err := h.Engine.Reconcile(r.Context(), sel)
		if err != nil {
			util.HandleEngineError(w, err)
			return
		}
		set = fresh
	}

	submitReq := evaluation.Request{
		Selection: sel,
		StudentID: reqBody.StudentID,
		RawScore:  reqBody.Score,
		Feedback:  reqBody.Feedback,
	}
	if prior, ok := set.Evaluations[reqBody.StudentID]; ok {
		submitReq.Prior = &prior
	}
	if record, ok := set.Find(reqBody.StudentID); ok {
		submitReq.SubmissionID = record.SubmissionID
		submitReq.FileURL = record.FileURL
	}

	record, err := h.Engine.SubmitEvaluation(r.Context(), submitReq)
	if err != nil {
		util.HandleEngineError(w, err)
		return
	}

	message := "Evaluation submitted successfully"
	if submitReq.Prior != nil {
		message = "Evaluation updated successfully"
	}

	response := map[string]interface{}{
		"success":    true,
		"evaluation": record,
		"message":    message,
	}

	util.WriteJSON(w, http.StatusOK, response)
}
