package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// Tracker tracks poll cycle metrics
type Tracker struct {
	mu sync.RWMutex

	TotalCycles    int
	StaleCycles    int
	DegradedCycles int

	TotalDuration time.Duration
	FetchDuration time.Duration
	BuildDuration time.Duration
	LastDuration  time.Duration
	LastCycleAt   time.Time

	Sources map[string]*SourceStats
}

// SourceStats accumulates per-source results across cycles
type SourceStats struct {
	Fetches   int
	Failures  int
	Events    int
	Missed    int
	Degraded  int
	LastError string
}

var globalTracker = NewTracker()

func NewTracker() *Tracker {
	return &Tracker{Sources: make(map[string]*SourceStats)}
}

// GetTracker returns the global performance tracker
func GetTracker() *Tracker {
	return globalTracker
}

// Reset resets all metrics
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalCycles = 0
	t.StaleCycles = 0
	t.DegradedCycles = 0
	t.TotalDuration = 0
	t.FetchDuration = 0
	t.BuildDuration = 0
	t.LastDuration = 0
	t.LastCycleAt = time.Time{}
	t.Sources = make(map[string]*SourceStats)
}

// RecordCycle records one completed poll cycle
func (t *Tracker) RecordCycle(fetch, build, total time.Duration, status []models.SourceStatus, stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalCycles++
	t.TotalDuration += total
	t.FetchDuration += fetch
	t.BuildDuration += build
	t.LastDuration = total
	t.LastCycleAt = time.Now()
	if stale {
		t.StaleCycles++
	}

	degraded := false
	for _, st := range status {
		s := t.Sources[st.Source]
		if s == nil {
			s = &SourceStats{}
			t.Sources[st.Source] = s
		}
		s.Fetches++
		s.Events += st.Events
		s.Missed += st.Missed
		s.Degraded += st.Degraded
		if !st.OK {
			degraded = true
			s.Failures++
			s.LastError = st.Error
		}
	}
	if degraded {
		t.DegradedCycles++
	}
}

// PrintSummary logs a performance summary
func (t *Tracker) PrintSummary() {
	m := t.GetMetrics()
	if m.Overall.TotalCycles == 0 {
		slog.Info("No performance data collected yet")
		return
	}

	slog.Info("PERFORMANCE SUMMARY",
		"total_cycles", m.Overall.TotalCycles,
		"stale_cycles", m.Overall.StaleCycles,
		"degraded_cycles", m.Overall.DegradedCycles,
		"avg_total", m.Timing.AvgTotal,
		"avg_fetch", m.Timing.AvgFetch,
		"avg_build", m.Timing.AvgBuild)

	for _, s := range m.Sources {
		slog.Info("Source Statistics",
			"source", s.Source,
			"fetches", s.Fetches,
			"success_rate", s.SuccessRate,
			"avg_events", s.AvgEvents,
			"missed", s.Missed,
			"degraded_cells", s.DegradedCells,
			"last_error", s.LastError)
	}
}

// MetricsResponse represents the JSON response structure for /metrics endpoint
type MetricsResponse struct {
	Overall struct {
		TotalCycles    int    `json:"total_cycles"`
		StaleCycles    int    `json:"stale_cycles"`
		DegradedCycles int    `json:"degraded_cycles"`
		LastCycleAt    string `json:"last_cycle_at,omitempty"`
	} `json:"overall"`

	Timing struct {
		AvgTotal     string  `json:"avg_total"`
		AvgFetch     string  `json:"avg_fetch"`
		AvgBuild     string  `json:"avg_build"`
		Last         string  `json:"last"`
		FetchPercent float64 `json:"fetch_percent"`
	} `json:"timing"`

	Sources []SourceMetrics `json:"sources"`
}

type SourceMetrics struct {
	Source        string  `json:"source"`
	Fetches       int     `json:"fetches"`
	Failures      int     `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`
	AvgEvents     float64 `json:"avg_events"`
	Missed        int     `json:"missed"`
	DegradedCells int     `json:"degraded_cells"`
	LastError     string  `json:"last_error,omitempty"`
}

// GetMetrics returns structured metrics for JSON API
func (t *Tracker) GetMetrics() MetricsResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp MetricsResponse
	resp.Overall.TotalCycles = t.TotalCycles
	resp.Overall.StaleCycles = t.StaleCycles
	resp.Overall.DegradedCycles = t.DegradedCycles
	if !t.LastCycleAt.IsZero() {
		resp.Overall.LastCycleAt = t.LastCycleAt.UTC().Format(time.RFC3339)
	}

	if t.TotalCycles > 0 {
		n := time.Duration(t.TotalCycles)
		resp.Timing.AvgTotal = (t.TotalDuration / n).String()
		resp.Timing.AvgFetch = (t.FetchDuration / n).String()
		resp.Timing.AvgBuild = (t.BuildDuration / n).String()
		resp.Timing.Last = t.LastDuration.String()
		if t.TotalDuration > 0 {
			resp.Timing.FetchPercent = float64(t.FetchDuration) / float64(t.TotalDuration) * 100
		}
	}

	names := make([]string, 0, len(t.Sources))
	for name := range t.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	resp.Sources = make([]SourceMetrics, 0, len(names))
	for _, name := range names {
		s := t.Sources[name]
		m := SourceMetrics{
			Source:        name,
			Fetches:       s.Fetches,
			Failures:      s.Failures,
			Missed:        s.Missed,
			DegradedCells: s.Degraded,
			LastError:     s.LastError,
		}
		if s.Fetches > 0 {
			m.SuccessRate = float64(s.Fetches-s.Failures) / float64(s.Fetches) * 100
			m.AvgEvents = float64(s.Events) / float64(s.Fetches)
		}
		resp.Sources = append(resp.Sources, m)
	}
	return resp
}
