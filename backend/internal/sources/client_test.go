package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gradesync/backend/internal/shared"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewHTTPClient(&shared.EngineConfig{
		ProviderBaseURL:   server.URL,
		ProviderAuthToken: "test-token",
		ProviderTimeout:   2 * time.Second,
	})
	return client, server
}

func TestFetchRoster(t *testing.T) {
	ctx := context.Background()
	sel := shared.AssignmentSelection{TrackID: "7", CourseID: "12", AssignmentID: "42"}

	t.Run("Success", func(t *testing.T) {
		var gotPath, gotAuth string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"submitters":     []map[string]string{{"student_id": "1", "name": "Ana", "email": "ana@x.io"}},
				"non_submitters": []map[string]string{{"student_id": "2", "name": "Ben", "email": "ben@x.io"}},
			})
		}))

		roster, err := client.FetchRoster(ctx, sel)
		if err != nil {
			t.Fatalf("FetchRoster failed: %v", err)
		}
		if gotPath != "/assignments/42/track/7/course/12/submitters/" {
			t.Errorf("Unexpected path: %s", gotPath)
		}
		if gotAuth != "Bearer test-token" {
			t.Errorf("Unexpected auth header: %s", gotAuth)
		}
		if len(roster.Submitters) != 1 || roster.Submitters[0].StudentID != "1" {
			t.Errorf("Unexpected submitters: %+v", roster.Submitters)
		}
		if len(roster.NonSubmitters) != 1 || roster.NonSubmitters[0].StudentID != "2" {
			t.Errorf("Unexpected non-submitters: %+v", roster.NonSubmitters)
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		_, err := client.FetchRoster(ctx, sel)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("Expected upstream error, got: %v", err)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := client.FetchRoster(ctx, sel)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("Expected upstream error, got: %v", err)
		}
	})
}

func TestFetchPrimarySubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		var gotPath string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewEncoder(w).Encode(map[string]interface{}{
				"submission": map[string]interface{}{
					"id":              101,
					"file_url":        "https://files/essay.pdf",
					"submission_time": "2026-03-02T10:30:00Z",
				},
			})
		}))

		signal, err := client.FetchPrimarySubmission(ctx, "42", "1")
		if err != nil {
			t.Fatalf("FetchPrimarySubmission failed: %v", err)
		}
		if gotPath != "/submission/assignments/42/students/1/" {
			t.Errorf("Unexpected path: %s", gotPath)
		}
		if signal == nil || signal.SubmissionID != "101" || signal.FileURL != "https://files/essay.pdf" {
			t.Fatalf("Unexpected signal: %+v", signal)
		}
		if signal.Source != shared.SourcePrimary {
			t.Errorf("Expected primary source, got: %s", signal.Source)
		}
		if signal.SubmittedAt.IsZero() {
			t.Errorf("Expected parsed timestamp, got zero time")
		}
	})

	t.Run("No Record Is Not An Error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		signal, err := client.FetchPrimarySubmission(ctx, "42", "1")
		if err != nil {
			t.Fatalf("Expected no error on 404, got: %v", err)
		}
		if signal != nil {
			t.Fatalf("Expected no signal, got: %+v", signal)
		}
	})

	t.Run("Timeout Maps To Upstream Error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		client.timeout = 20 * time.Millisecond

		_, err := client.FetchPrimarySubmission(ctx, "42", "1")
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("Expected upstream error on timeout, got: %v", err)
		}
	})
}

func TestFetchAlternateSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		var gotQuery string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 202, "file_url": "https://files/alt.pdf", "submission_date": "2026-03-03T08:00:00Z"},
			})
		}))

		signal, err := client.FetchAlternateSubmission(ctx, "2", "42")
		if err != nil {
			t.Fatalf("FetchAlternateSubmission failed: %v", err)
		}
		if gotQuery != "assignment=42&student=2" {
			t.Errorf("Unexpected query: %s", gotQuery)
		}
		if signal == nil || signal.SubmissionID != "202" || signal.Source != shared.SourceAlternate {
			t.Fatalf("Unexpected signal: %+v", signal)
		}
	})

	t.Run("Empty List", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]interface{}{})
		}))

		signal, err := client.FetchAlternateSubmission(ctx, "2", "42")
		if err != nil {
			t.Fatalf("Expected no error on empty list, got: %v", err)
		}
		if signal != nil {
			t.Fatalf("Expected no signal, got: %+v", signal)
		}
	})
}

func TestFetchExistingGrade(t *testing.T) {
	ctx := context.Background()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grades/student/1/" || r.URL.Query().Get("assignment") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id": 9, "student": 1, "assignment": 42, "course": 12, "track": 7,
				"score": 8.5, "feedback": "Solid work", "submission": 101,
				"graded_date": "2026-03-05T09:00:00Z",
			},
		})
	}))

	record, err := client.FetchExistingGrade(ctx, "1", "42")
	if err != nil {
		t.Fatalf("FetchExistingGrade failed: %v", err)
	}
	if record == nil || record.ID != "9" || record.Score != 8.5 || record.SubmissionID != "101" {
		t.Fatalf("Unexpected record: %+v", record)
	}
	if record.Feedback != "Solid work" {
		t.Errorf("Unexpected feedback: %s", record.Feedback)
	}
}

func TestUpsertGrade(t *testing.T) {
	ctx := context.Background()
	record := shared.EvaluationRecord{
		StudentID:    "1",
		AssignmentID: "42",
		CourseID:     "12",
		TrackID:      "7",
		Score:        9,
		Feedback:     "Great",
		SubmissionID: "101",
	}

	t.Run("Create Uses POST", func(t *testing.T) {
		var gotMethod, gotPath string
		var gotPayload map[string]interface{}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotPayload)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": 55, "student": 1, "assignment": 42, "course": 12, "track": 7,
				"score": 9, "feedback": "Great", "submission": 101,
			})
		}))

		saved, err := client.UpsertGrade(ctx, record, false)
		if err != nil {
			t.Fatalf("UpsertGrade failed: %v", err)
		}
		if gotMethod != http.MethodPost || gotPath != "/grades/" {
			t.Errorf("Expected POST /grades/, got %s %s", gotMethod, gotPath)
		}
		if gotPayload["submission"] != "101" {
			t.Errorf("Expected submission in payload, got: %v", gotPayload["submission"])
		}
		if saved.ID != "55" {
			t.Errorf("Expected store-assigned id, got: %s", saved.ID)
		}
	})

	t.Run("Update Uses PUT Against Record ID", func(t *testing.T) {
		existing := record
		existing.ID = "55"

		var gotMethod, gotPath string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 55, "student": 1, "assignment": 42})
		}))

		if _, err := client.UpsertGrade(ctx, existing, true); err != nil {
			t.Fatalf("UpsertGrade failed: %v", err)
		}
		if gotMethod != http.MethodPut || gotPath != "/grades/55/" {
			t.Errorf("Expected PUT /grades/55/, got %s %s", gotMethod, gotPath)
		}
	})

	t.Run("Submission Omitted When Unresolved", func(t *testing.T) {
		unresolved := record
		unresolved.SubmissionID = ""

		var gotPayload map[string]interface{}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotPayload)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 56})
		}))

		if _, err := client.UpsertGrade(ctx, unresolved, false); err != nil {
			t.Fatalf("UpsertGrade failed: %v", err)
		}
		if _, present := gotPayload["submission"]; present {
			t.Errorf("Expected submission omitted from payload, got: %v", gotPayload["submission"])
		}
	})

	t.Run("Rejection Surfaces Server Detail", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "score exceeds rubric maximum"})
		}))

		_, err := client.UpsertGrade(ctx, record, false)
		if !errors.Is(err, shared.ErrValidationRejected) {
			t.Fatalf("Expected validation rejection, got: %v", err)
		}
		var validation *shared.ValidationError
		if !errors.As(err, &validation) || validation.Detail != "score exceeds rubric maximum" {
			t.Fatalf("Expected server detail preserved, got: %v", err)
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := client.UpsertGrade(ctx, record, false)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Fatalf("Expected upstream error, got: %v", err)
		}
	})
}
