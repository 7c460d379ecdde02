package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/pairgen/internal/audit"
)

// handleListHistory returns paginated operation history with optional filters.
//
// Query parameters:
//   - operation: filter by operation (export, wifi-test, wifi-enable, regenerate)
//   - identity: filter by device identity
//   - success: "true" or "false"
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "operation history not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Operation: q.Get("operation"),
		Identity:  q.Get("identity"),
	}

	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "success must be true or false")
			return
		}
		filter.Success = &b
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list operation history", "error", err)
		writeInternalError(w, "failed to list operation history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
