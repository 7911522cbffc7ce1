package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Vodeneev/linecompare/internal/pkg/performance"
)

var tracker *performance.Tracker

// SetTracker sets the tracker served by HandleMetrics. nil means the global one.
func SetTracker(t *performance.Tracker) {
	tracker = t
}

// HandleMetrics handles /metrics endpoint
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	t := tracker
	if t == nil {
		t = performance.GetTracker()
	}
	metrics := t.GetMetrics()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(metrics); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode metrics: %v", err), http.StatusInternalServerError)
		return
	}
}
