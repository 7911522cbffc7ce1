package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

var triggerFunc func() bool

// SetTriggerFunc sets the function that starts an out-of-band cycle (e.g. poller.Trigger).
// It must report false when a cycle is already running.
func SetTriggerFunc(fn func() bool) {
	triggerFunc = fn
}

// HandleParse triggers one poll cycle outside the schedule.
// POST /api/parse returns 202 when a cycle was started and 409 while one is running.
func HandleParse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if triggerFunc == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": "poller not running"})
		return
	}

	started := triggerFunc()
	status := http.StatusAccepted
	if !started {
		status = http.StatusConflict
	}
	slog.Info("Manual cycle requested", "started", started)

	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"started": started,
		"cycle":   currentSnapshot().Cycle,
	}); err != nil {
		slog.Error("Failed to encode parse response", "error", err)
	}
}
