package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError categorizes err and sends it with the matching status. Internal errors are
// logged and their cause is not exposed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	if apperrors.IsSystemError(catErr) {
		logging.FromContext(r.Context()).WithError(err).WithField("code", catErr.Code).Error("Request failed")
	}
	if catErr.StatusCode == http.StatusTooManyRequests {
		if retry, ok := retryAfter(catErr.Details); ok {
			w.Header().Set("Retry-After", retry)
		}
	}
	writeError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
}

// writeError sends an error body with an explicit status
func writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // headers already sent
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewInvalidParameterError("body", err.Error())
	}
	return nil
}

// parseOptionalJSONBody is parseJSONBody for endpoints where the body may be left out
func parseOptionalJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return apperrors.NewInvalidParameterError("body", err.Error())
	}
	return nil
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewInvalidParameterError(name, "must be a non-negative integer")
	}
	return v, nil
}

// queryFloat reads an optional number query parameter
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError(name, "must be a number")
	}
	return v, nil
}

func retryAfter(details map[string]interface{}) (string, bool) {
	if secs, ok := details["retryAfter"].(int); ok {
		return strconv.Itoa(secs), true
	}
	if hours, ok := details["nextSnapshotAllowedIn"].(float64); ok {
		return fmt.Sprintf("%.0f", hours*3600), true
	}
	return "", false
}
