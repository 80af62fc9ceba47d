// ============================================================================
// backend/internal/sources/client.go
// Uniform client boundary to the upstream roster, submission and grade
// providers. No caching here; memoization, if any, belongs to the caller.
// ============================================================================

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gradesync/backend/internal/shared"
)

// Client is the engine's only boundary to the outside world: five
// independently failable request/response operations.
//
// The Fetch* lookups return (nil, nil) when the student simply has no record;
// absence is not an error. Transport failures, timeouts and 5xx responses
// surface as shared.ErrUpstreamUnavailable.
type Client interface {
	FetchRoster(ctx context.Context, sel shared.AssignmentSelection) (*shared.Roster, error)
	FetchPrimarySubmission(ctx context.Context, assignmentID, studentID string) (*shared.SubmissionSignal, error)
	FetchAlternateSubmission(ctx context.Context, studentID, assignmentID string) (*shared.SubmissionSignal, error)
	FetchExistingGrade(ctx context.Context, studentID, assignmentID string) (*shared.EvaluationRecord, error)
	UpsertGrade(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error)
}

// HTTPClient talks JSON over HTTP to the provider API.
type HTTPClient struct {
	baseURL   string
	authToken string
	timeout   time.Duration
	http      *http.Client
}

// NewHTTPClient creates a provider client from engine configuration.
func NewHTTPClient(config *shared.EngineConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(config.ProviderBaseURL, "/"),
		authToken: config.ProviderAuthToken,
		timeout:   config.ProviderTimeout,
		http:      &http.Client{},
	}
}

// ============================================================================
// Wire Formats
// ============================================================================

// The provider API uses numeric ids and two different timestamp field names
// for the two submission endpoints, so each endpoint gets its own wire struct.

type rosterResponse struct {
	Submitters    []shared.StudentRosterEntry `json:"submitters"`
	NonSubmitters []shared.StudentRosterEntry `json:"non_submitters"`
}

type primarySubmissionResponse struct {
	Submission *struct {
		ID             json.Number `json:"id"`
		FileURL        string      `json:"file_url"`
		SubmissionTime string      `json:"submission_time"`
	} `json:"submission"`
}

type alternateSubmission struct {
	ID             json.Number `json:"id"`
	FileURL        string      `json:"file_url"`
	SubmissionDate string      `json:"submission_date"`
}

type gradeRecord struct {
	ID         json.Number `json:"id"`
	Student    json.Number `json:"student"`
	Assignment json.Number `json:"assignment"`
	Course     json.Number `json:"course"`
	Track      json.Number `json:"track"`
	Score      float64     `json:"score"`
	Feedback   string      `json:"feedback"`
	Submission json.Number `json:"submission"`
	FileURL    string      `json:"file_url"`
	GradedDate string      `json:"graded_date"`
}

type gradePayload struct {
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
	Student    string  `json:"student"`
	Assignment string  `json:"assignment"`
	Course     string  `json:"course"`
	Track      string  `json:"track"`
	Submission string  `json:"submission,omitempty"`
	FileURL    string  `json:"file_url,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ============================================================================
// Operations
// ============================================================================

// FetchRoster retrieves the submitter/non-submitter partition for one
// assignment scope.
func (c *HTTPClient) FetchRoster(ctx context.Context, sel shared.AssignmentSelection) (*shared.Roster, error) {
	path := fmt.Sprintf("/assignments/%s/track/%s/course/%s/submitters/",
		url.PathEscape(sel.AssignmentID), url.PathEscape(sel.TrackID), url.PathEscape(sel.CourseID))

	var resp rosterResponse
	found, err := c.get(ctx, "roster", path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		// An unknown assignment scope has no roster to reconcile against.
		return nil, &shared.UpstreamError{Source: "roster", StatusCode: http.StatusNotFound}
	}

	return &shared.Roster{Submitters: resp.Submitters, NonSubmitters: resp.NonSubmitters}, nil
}

// FetchPrimarySubmission queries the primary submission endpoint for one
// student. Returns (nil, nil) when the student has no record there.
func (c *HTTPClient) FetchPrimarySubmission(ctx context.Context, assignmentID, studentID string) (*shared.SubmissionSignal, error) {
	path := fmt.Sprintf("/submission/assignments/%s/students/%s/",
		url.PathEscape(assignmentID), url.PathEscape(studentID))

	var resp primarySubmissionResponse
	found, err := c.get(ctx, "primary", path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found || resp.Submission == nil {
		return nil, nil
	}

	return &shared.SubmissionSignal{
		Source:       shared.SourcePrimary,
		SubmissionID: resp.Submission.ID.String(),
		FileURL:      resp.Submission.FileURL,
		SubmittedAt:  parseProviderTime(resp.Submission.SubmissionTime),
	}, nil
}

// FetchAlternateSubmission queries the instructor-view submission endpoint,
// which returns a list filtered by student and assignment. Only the first
// entry is meaningful. Returns (nil, nil) on an empty list.
func (c *HTTPClient) FetchAlternateSubmission(ctx context.Context, studentID, assignmentID string) (*shared.SubmissionSignal, error) {
	query := url.Values{}
	query.Set("student", studentID)
	query.Set("assignment", assignmentID)

	var resp []alternateSubmission
	found, err := c.get(ctx, "alternate", "/submission/instructor/", query, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp) == 0 {
		return nil, nil
	}

	return &shared.SubmissionSignal{
		Source:       shared.SourceAlternate,
		SubmissionID: resp[0].ID.String(),
		FileURL:      resp[0].FileURL,
		SubmittedAt:  parseProviderTime(resp[0].SubmissionDate),
	}, nil
}

// FetchExistingGrade looks up an existing evaluation for one student under
// one assignment. Returns (nil, nil) when none exists.
func (c *HTTPClient) FetchExistingGrade(ctx context.Context, studentID, assignmentID string) (*shared.EvaluationRecord, error) {
	path := fmt.Sprintf("/grades/student/%s/", url.PathEscape(studentID))
	query := url.Values{}
	query.Set("assignment", assignmentID)

	var resp []gradeRecord
	found, err := c.get(ctx, "grades", path, query, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp) == 0 {
		return nil, nil
	}

	record := resp[0].toModel()
	return &record, nil
}

// UpsertGrade issues exactly one mutation: POST to create when exists is
// false, PUT against the record's id when true.
func (c *HTTPClient) UpsertGrade(ctx context.Context, record shared.EvaluationRecord, exists bool) (*shared.EvaluationRecord, error) {
	payload := gradePayload{
		Score:      record.Score,
		Feedback:   record.Feedback,
		Student:    record.StudentID,
		Assignment: record.AssignmentID,
		Course:     record.CourseID,
		Track:      record.TrackID,
		Submission: record.SubmissionID,
		FileURL:    record.FileURL,
	}

	method := http.MethodPost
	path := "/grades/"
	if exists {
		method = http.MethodPut
		path = fmt.Sprintf("/grades/%s/", url.PathEscape(record.ID))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding grade payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building grade request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &shared.UpstreamError{Source: "grades", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var saved gradeRecord
		if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
			return nil, &shared.UpstreamError{Source: "grades", Err: err}
		}
		savedRecord := saved.toModel()
		return &savedRecord, nil
	case resp.StatusCode >= 500:
		return nil, &shared.UpstreamError{Source: "grades", StatusCode: resp.StatusCode}
	default:
		return nil, &shared.ValidationError{Detail: readDetail(resp.Body)}
	}
}

// ============================================================================
// Helpers
// ============================================================================

// get performs a GET and decodes a 2xx body into out. A 404 means the
// resource cleanly does not exist: found is false and err is nil.
func (c *HTTPClient) get(ctx context.Context, source, path string, query url.Values, out interface{}) (bool, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("building %s request: %w", source, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, &shared.UpstreamError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, &shared.UpstreamError{Source: source, Err: err}
		}
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &shared.UpstreamError{Source: source, StatusCode: resp.StatusCode}
	}
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

func (g gradeRecord) toModel() shared.EvaluationRecord {
	return shared.EvaluationRecord{
		ID:           g.ID.String(),
		StudentID:    g.Student.String(),
		AssignmentID: g.Assignment.String(),
		CourseID:     g.Course.String(),
		TrackID:      g.Track.String(),
		Score:        g.Score,
		Feedback:     g.Feedback,
		SubmissionID: g.Submission.String(),
		FileURL:      g.FileURL,
		GradedDate:   parseProviderTime(g.GradedDate),
	}
}

// parseProviderTime accepts the provider's RFC3339-ish timestamps and returns
// the zero time when the value is absent or malformed. A missing timestamp
// must not invalidate an otherwise usable signal.
func parseProviderTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return strings.TrimSpace(string(raw))
}
