package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rl1809/putaway/internal/core/service"
	"github.com/rl1809/putaway/internal/port"
)

// HTTPHandler exposes the batch trigger: POST /api/putaway/run loads the
// unlocated units from the store and places each of them.
type HTTPHandler struct {
	runner *service.Runner
	store  port.DataStore
}

type RunHTTPResponse struct {
	Total     int              `json:"total"`
	Committed int              `json:"committed"`
	Failed    int              `json:"failed"`
	Results   []UnitHTTPResult `json:"results"`
}

type UnitHTTPResult struct {
	UnitID     string `json:"unit_id"`
	Status     string `json:"status"`
	LocationID string `json:"location_id,omitempty"`
	Rationale  string `json:"rationale,omitempty"`
	Error      string `json:"error,omitempty"`
}

func NewHTTPHandler(runner *service.Runner, store port.DataStore) *HTTPHandler {
	return &HTTPHandler{runner: runner, store: store}
}

func (h *HTTPHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	units, err := h.store.LoadUnlocatedUnits(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load unlocated units"})
		return
	}

	results := h.runner.Run(r.Context(), units)

	resp := RunHTTPResponse{Total: len(results)}
	for _, res := range results {
		out := UnitHTTPResult{
			UnitID:     res.UnitID,
			Status:     string(res.Status),
			LocationID: res.LocationID,
			Rationale:  string(res.Rationale),
		}
		if res.Status == service.StatusCommitted {
			resp.Committed++
		} else {
			resp.Failed++
			out.Error = errorKind(res.Err)
		}
		resp.Results = append(resp.Results, out)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, service.ErrTimeout):
		return "timeout"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
