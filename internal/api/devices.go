package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pairgen/internal/orchestrator"
)

// operationRequest is the optional JSON body of an operation request.
type operationRequest struct {
	// Destination is the export directory (export, regenerate).
	Destination string `json:"destination"`

	// Address is the device's network address (wifi test on a USB device).
	Address string `json:"address"`
}

// handleListDevices enumerates reachable devices.
//
// Query parameters:
//   - cached: "true" returns the last listing without enumerating
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		devices := s.orch.CachedDevices()
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.orch.Devices(r.Context())
	if err != nil {
		s.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one reachable device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.orch.Lookup(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		s.writeOperationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleOperation returns a handler that runs op against the device named
// in the path.
func (s *Server) handleOperation(op orchestrator.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		if req.Destination == "" {
			req.Destination = s.defaultDest
		}

		d, err := s.orch.Lookup(r.Context(), chi.URLParam(r, "identity"))
		if err != nil {
			s.writeOperationError(w, r, err)
			return
		}

		prompt := orchestrator.StaticPrompt{Directory: req.Destination, Address: req.Address}
		res, err := s.orch.Run(r.Context(), op, d, prompt)
		if err != nil {
			s.writeOperationError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
