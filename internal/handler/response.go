package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so all responses
// share one shape:
//
//	success: the resource itself, e.g. {"id": "...", "title": "..."}
//	error:   {"error": "not_found", "message": "book not found with id x"}
//
// Validation errors additionally list each bad field:
//
//	{"error": "validation_error", "message": "...",
//	 "fields": [{"field": "email", "message": "email must be a valid email address"}]}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/sakif/library-api/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string                `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string                `json:"message"` // Human-readable description
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and the status code must be set BEFORE the body is written. Once
// Encode calls w.Write, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error kind to its HTTP status and error type.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/loan: %w", apperror.NotFound("loan", id))
//
// still maps to 404.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTooManyRequests):
		return http.StatusTooManyRequests, "too_many_requests"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps err to a status code and sends it.
//
// Anything that is not an *apperror.AppError becomes a generic 500. The raw
// error is logged but NEVER sent to the client: it may contain SQL, file
// paths or connection strings.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
		return
	}

	status, errorType := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: "an internal error occurred",
		})
		return
	}

	if status == http.StatusTooManyRequests && appErr.RetryAfter > 0 {
		// Retry-After is whole seconds; round up so clients never retry early.
		secs := int(math.Ceil(appErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}
