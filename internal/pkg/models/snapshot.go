package models

import (
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// BestLabel marks the most favorable price in a team row.
type BestLabel string

const (
	BestNone     BestLabel = ""
	BestUnderdog BestLabel = "best_underdog"
	BestFavorite BestLabel = "best_favorite"
)

// ChangeLabel marks how a cell moved since the previous cycle.
type ChangeLabel string

const (
	ChangeNone     ChangeLabel = ""
	ChangeImproved ChangeLabel = "improved"
	ChangeWorsened ChangeLabel = "worsened"
)

// Cell is one source's price for one team.
type Cell struct {
	Source string      `json:"source"`
	Price  odds.Price  `json:"price"`
	Best   BestLabel   `json:"best,omitempty"`
	Change ChangeLabel `json:"change,omitempty"`
}

// Row is one team's prices across all sources, in snapshot source order.
type Row struct {
	Team  string `json:"team"`
	Cells []Cell `json:"cells"`
}

// Event is a canonical matchup with team names taken from the reference source.
type Event struct {
	Key   string `json:"key"`
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
	Rows  [2]Row `json:"rows"`
}

// SourceStatus reports how one source fared in the cycle.
type SourceStatus struct {
	Source   string `json:"source"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Events   int    `json:"events"`
	Missed   int    `json:"missed"`
	Degraded int    `json:"degraded"`
}

// Snapshot is the complete presentation-ready state of one poll cycle.
// Once published it must not be modified.
type Snapshot struct {
	Cycle       int64          `json:"cycle"`
	GeneratedAt time.Time      `json:"generated_at"`
	Reference   string         `json:"reference"`
	Sources     []string       `json:"sources"`
	Events      []Event        `json:"events"`
	Status      []SourceStatus `json:"status"`
	Stale       bool           `json:"stale"`
}

// Degraded reports whether any source failed this cycle.
func (s *Snapshot) Degraded() bool {
	if s == nil {
		return false
	}
	for _, st := range s.Status {
		if !st.OK {
			return true
		}
	}
	return false
}

// Lookup indexes every cell by its CellKey.
func (s *Snapshot) Lookup() map[CellKey]Cell {
	if s == nil {
		return nil
	}
	out := make(map[CellKey]Cell, len(s.Events)*2*len(s.Sources))
	for _, ev := range s.Events {
		for slot, row := range ev.Rows {
			for _, c := range row.Cells {
				out[CellKey{Team1: ev.Team1, Team2: ev.Team2, Slot: slot, Source: c.Source}] = c
			}
		}
	}
	return out
}

// Cell returns the cell at key.
func (s *Snapshot) Cell(key CellKey) (Cell, bool) {
	if s == nil {
		return Cell{}, false
	}
	for _, ev := range s.Events {
		if ev.Team1 != key.Team1 || ev.Team2 != key.Team2 {
			continue
		}
		if key.Slot < 0 || key.Slot > 1 {
			return Cell{}, false
		}
		for _, c := range ev.Rows[key.Slot].Cells {
			if c.Source == key.Source {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// Clone deep-copies the snapshot so a new cycle can derive from it without
// touching the published one.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Sources = append([]string(nil), s.Sources...)
	out.Status = append([]SourceStatus(nil), s.Status...)
	out.Events = make([]Event, len(s.Events))
	for i, ev := range s.Events {
		cp := ev
		for slot := range ev.Rows {
			cp.Rows[slot].Cells = append([]Cell(nil), ev.Rows[slot].Cells...)
		}
		out.Events[i] = cp
	}
	return &out
}
