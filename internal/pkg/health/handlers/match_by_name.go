package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/export"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// GetEventsByNameFunc returns the current events whose team names match name.
type GetEventsByNameFunc func(name string) []models.Event

var getEventsByNameFunc GetEventsByNameFunc

// SetGetEventsByNameFunc sets the function used by HandleMatchByName (e.g. snapshot.Store.EventsByName).
func SetGetEventsByNameFunc(fn GetEventsByNameFunc) {
	getEventsByNameFunc = fn
}

// HandleMatchByName returns the events whose team names contain the query, with all prices.
// GET /api/odds/match?name=Yankees
func HandleMatchByName(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		http.Error(w, `missing query parameter "name"`, http.StatusBadRequest)
		return
	}

	snap := currentSnapshot()
	var events []models.Event
	if getEventsByNameFunc != nil {
		events = getEventsByNameFunc(name)
	} else {
		q := strings.ToLower(name)
		for _, ev := range snap.Events {
			if strings.Contains(strings.ToLower(ev.Team1), q) || strings.Contains(strings.ToLower(ev.Team2), q) {
				events = append(events, ev)
			}
		}
	}
	if events == nil {
		events = []models.Event{}
	}

	duration := time.Since(startTime)
	w.Header().Set("X-Query-Duration", duration.String())
	w.Header().Set("X-Matches-Count", fmt.Sprintf("%d", len(events)))

	slog.Info("Match-by-name query", "name", name, "count", len(events), "duration", duration)

	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"odds": export.Build(snap, events, highlightTTL),
		"meta": map[string]interface{}{
			"query":    name,
			"count":    len(events),
			"duration": duration.String(),
		},
	}); err != nil {
		slog.Error("Failed to encode match-by-name response", "error", err)
		http.Error(w, fmt.Sprintf("Failed to encode: %v", err), http.StatusInternalServerError)
		return
	}
}
