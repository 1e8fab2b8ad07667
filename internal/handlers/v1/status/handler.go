package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carson-networks/budget-server/internal/logging"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Handler struct {
	Checks []Check
}

func NewHandler(checks ...Check) Handler {
	return Handler{Checks: checks}
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	done := logData.AddTiming("checks")
	for i, check := range h.Checks {
		if err := check(ctx); err != nil {
			done()
			logData.AddData("failedCheck", i)
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Error: err.Error()})
			return fmt.Errorf("status: check %d: %w", i, err)
		}
	}
	done()

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	return nil
}

func writeJSON(w http.ResponseWriter, code int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
