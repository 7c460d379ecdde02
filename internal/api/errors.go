package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/pairgen/internal/orchestrator"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodePrecondition = "precondition_failed"
	ErrCodeBadGateway   = "device_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeTimeout      = "timeout"
	ErrCodeInternal     = "internal_error"
)

// kindStatus maps orchestrator failure kinds to HTTP statuses.
// Kinds not listed are 500.
var kindStatus = map[string]int{
	"NoDevicesFound":           http.StatusNotFound,
	"DeviceNotFound":           http.StatusNotFound,
	"PairingRecordNotFound":    http.StatusNotFound,
	"InvalidAddress":           http.StatusBadRequest,
	"DestinationNotSelected":   http.StatusBadRequest,
	"UnknownOperation":         http.StatusBadRequest,
	"WrongTransportForPairing": http.StatusConflict,
	"PreconditionUnmet":        http.StatusPreconditionFailed,
	"SessionOpenFailed":        http.StatusBadGateway,
	"AttributeUnavailable":     http.StatusBadGateway,
	"ProtocolError":            http.StatusBadGateway,
	"SessionNotReady":          http.StatusBadGateway,
	"Unreachable":              http.StatusBadGateway,
	"EnumerationUnavailable":   http.StatusServiceUnavailable,
}

// statusCodes maps statuses to error codes.
var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusConflict:            ErrCodeConflict,
	http.StatusPreconditionFailed:  ErrCodePrecondition,
	http.StatusBadGateway:          ErrCodeBadGateway,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
	http.StatusGatewayTimeout:      ErrCodeTimeout,
	http.StatusInternalServerError: ErrCodeInternal,
}

// statusForError returns the HTTP status and failure kind for err.
func statusForError(err error) (int, string) {
	kind := orchestrator.ErrorKind(err)
	if status, ok := kindStatus[kind]; ok {
		return status, kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, kind
	}
	return http.StatusInternalServerError, kind
}

// writeOperationError writes err with the status its kind maps to.
// Internal failures are logged; their detail is still returned since the
// API only listens locally.
func (s *Server) writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	}
	writeJSON(w, status, Error{
		Status:  status,
		Code:    statusCodes[status],
		Kind:    kind,
		Message: err.Error(),
	})
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
