package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/export"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// GetSnapshotFunc returns the most recently published snapshot.
type GetSnapshotFunc func() *models.Snapshot

var (
	getSnapshotFunc GetSnapshotFunc
	highlightTTL    time.Duration
)

// SetGetSnapshotFunc sets the snapshot source for the odds endpoints (e.g. snapshot.Store.Load).
func SetGetSnapshotFunc(fn GetSnapshotFunc) {
	getSnapshotFunc = fn
}

// SetHighlightTTL sets how long pages keep a change highlight.
func SetHighlightTTL(d time.Duration) {
	highlightTTL = d
}

// HighlightTTL returns the value set by SetHighlightTTL.
func HighlightTTL() time.Duration {
	return highlightTTL
}

func currentSnapshot() *models.Snapshot {
	if getSnapshotFunc == nil {
		return &models.Snapshot{}
	}
	if snap := getSnapshotFunc(); snap != nil {
		return snap
	}
	return &models.Snapshot{}
}

// HandleOdds returns the current snapshot as JSON.
// GET /api/odds
func HandleOdds(w http.ResponseWriter, r *http.Request) {
	snap := currentSnapshot()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Cycle", fmt.Sprintf("%d", snap.Cycle))

	if err := json.NewEncoder(w).Encode(export.Build(snap, nil, highlightTTL)); err != nil {
		slog.Error("Failed to encode odds response", "error", err)
		http.Error(w, fmt.Sprintf("Failed to encode: %v", err), http.StatusInternalServerError)
		return
	}
}

// HandleOddsText returns the current snapshot as a fixed-width text table.
// GET /api/odds.txt
func HandleOddsText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := export.WriteTable(w, currentSnapshot()); err != nil {
		slog.Error("Failed to write odds table", "error", err)
	}
}
