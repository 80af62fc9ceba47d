package util

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"gradesync/backend/internal/shared"
)

// JSONResponse structure for successful responses
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSONError structure for error responses
type JSONError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON is a helper to write JSON responses
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var response interface{}

	// If payload is already a map with a "success" key, use it directly (custom format)
	if responseMap, ok := payload.(map[string]interface{}); ok && responseMap["success"] != nil {
		response = payload
	} else if status >= 200 && status < 300 {
		response = JSONResponse{Success: true, Data: payload}
	} else {
		response = JSONError{Success: false, Message: "Unknown error"}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONError is a helper to write standardized error JSON responses
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	log.Printf("HTTP Error %d: %s", status, message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResponse := JSONError{
		Success: false,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Error writing JSON error response: %v", err)
	}
}

// HandleEngineError translates engine errors to appropriate HTTP responses.
// This is the single place the error taxonomy meets HTTP status codes.
func HandleEngineError(w http.ResponseWriter, err error) {
	var validation *shared.ValidationError

	switch {
	case errors.Is(err, shared.ErrInvalidScore):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		// Surface the grading store's own message verbatim.
		WriteJSONError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, shared.ErrAlreadyInFlight):
		WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrStaleContext):
		// The request that superseded this pass is the one the UI renders;
		// this response is never shown to a user.
		WriteJSONError(w, http.StatusConflict, "selection changed, results discarded")
	case errors.Is(err, shared.ErrRosterUnavailable):
		WriteJSONError(w, http.StatusServiceUnavailable, "Could not load the student roster. Please retry.")
	case errors.Is(err, context.DeadlineExceeded):
		WriteJSONError(w, http.StatusGatewayTimeout, "The upstream provider took too long to respond.")
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		WriteJSONError(w, http.StatusServiceUnavailable, "An upstream provider is unreachable. Please retry.")
	default:
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// ExtractToken extracts the token from the Authorization header (Bearer <token>)
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	// Expect header: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
