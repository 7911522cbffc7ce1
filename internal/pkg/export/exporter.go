package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// Export is the JSON view of a snapshot served to pages and API clients.
type Export struct {
	Cycle          int64                 `json:"cycle"`
	GeneratedAt    time.Time             `json:"generated_at"`
	Reference      string                `json:"reference"`
	Sources        []string              `json:"sources"`
	Stale          bool                  `json:"stale"`
	Degraded       bool                  `json:"degraded"`
	HighlightTTLMs int64                 `json:"highlight_ttl_ms,omitempty"`
	Status         []models.SourceStatus `json:"status"`
	Events         []EventExport         `json:"events"`
}

// EventExport represents one canonical matchup
type EventExport struct {
	Key   string      `json:"key"`
	Team1 string      `json:"team1"`
	Team2 string      `json:"team2"`
	Rows  []RowExport `json:"rows"`
}

// RowExport represents one team's prices across sources
type RowExport struct {
	Team  string       `json:"team"`
	Cells []CellExport `json:"cells"`
}

// CellExport represents one source's price for a team
type CellExport struct {
	Source             string             `json:"source"`
	Price              *int               `json:"price"`
	Display            string             `json:"display"`
	ImpliedProbability float64            `json:"implied_probability,omitempty"`
	Best               models.BestLabel   `json:"best,omitempty"`
	Change             models.ChangeLabel `json:"change,omitempty"`
}

// Build converts a snapshot to its JSON view. events may be a filtered subset
// of snap.Events; nil means all of them.
func Build(snap *models.Snapshot, events []models.Event, highlightTTL time.Duration) Export {
	if snap == nil {
		snap = &models.Snapshot{}
	}
	if events == nil {
		events = snap.Events
	}
	out := Export{
		Cycle:          snap.Cycle,
		GeneratedAt:    snap.GeneratedAt,
		Reference:      snap.Reference,
		Sources:        snap.Sources,
		Stale:          snap.Stale,
		Degraded:       snap.Degraded(),
		HighlightTTLMs: highlightTTL.Milliseconds(),
		Status:         snap.Status,
		Events:         make([]EventExport, 0, len(events)),
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Status == nil {
		out.Status = []models.SourceStatus{}
	}

	for _, ev := range events {
		ee := EventExport{Key: ev.Key, Team1: ev.Team1, Team2: ev.Team2, Rows: make([]RowExport, 0, 2)}
		for _, row := range ev.Rows {
			re := RowExport{Team: row.Team, Cells: make([]CellExport, 0, len(row.Cells))}
			for _, c := range row.Cells {
				ce := CellExport{
					Source:             c.Source,
					Display:            c.Price.String(),
					ImpliedProbability: c.Price.ImpliedProbability(),
					Best:               c.Best,
					Change:             c.Change,
				}
				if v, ok := c.Price.Value(); ok {
					ce.Price = &v
				}
				re.Cells = append(re.Cells, ce)
			}
			ee.Rows = append(ee.Rows, re)
		}
		out.Events = append(out.Events, ee)
	}
	return out
}

const (
	teamWidth = 20
	cellWidth = 10
)

// WriteTable renders the snapshot as a fixed-width text table: one block per
// event, one column per source. Markers: '*' best price, '^' improved, 'v' worsened.
func WriteTable(w io.Writer, snap *models.Snapshot) error {
	bw := bufio.NewWriter(w)
	if snap == nil {
		snap = &models.Snapshot{}
	}

	header := fmt.Sprintf("cycle %d", snap.Cycle)
	if !snap.GeneratedAt.IsZero() {
		header += " at " + snap.GeneratedAt.UTC().Format(time.RFC3339)
	}
	if snap.Stale {
		header += " (stale)"
	}
	fmt.Fprintln(bw, header)

	fmt.Fprintf(bw, "%-*s", teamWidth, "")
	for _, src := range snap.Sources {
		fmt.Fprintf(bw, " %*s", cellWidth, truncate(src, cellWidth))
	}
	fmt.Fprintln(bw)

	for _, ev := range snap.Events {
		for _, row := range ev.Rows {
			fmt.Fprintf(bw, "%-*s", teamWidth, truncate(row.Team, teamWidth))
			for _, c := range row.Cells {
				fmt.Fprintf(bw, " %*s", cellWidth, cellText(c))
			}
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw)
	}

	for _, st := range snap.Status {
		if !st.OK {
			fmt.Fprintf(bw, "! %s: %s\n", st.Source, st.Error)
		}
	}
	return bw.Flush()
}

func cellText(c models.Cell) string {
	s := c.Price.String()
	if s == "" {
		return "-"
	}
	if c.Best != models.BestNone {
		s += "*"
	}
	switch c.Change {
	case models.ChangeImproved:
		s += "^"
	case models.ChangeWorsened:
		s += "v"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Table returns WriteTable's output as a string.
func Table(snap *models.Snapshot) string {
	var sb strings.Builder
	_ = WriteTable(&sb, snap)
	return sb.String()
}
