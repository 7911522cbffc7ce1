package calculator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// ErrReferenceUnavailable means the reference source produced nothing usable,
// so the canonical event list for the cycle is unknown.
var ErrReferenceUnavailable = errors.New("reference source unavailable")

// SourceResult is one producer's outcome for a cycle.
type SourceResult struct {
	Source string
	Raw    *models.RawExtraction
	Err    error
}

// Input is everything BuildSnapshot needs for one cycle.
type Input struct {
	Cycle     int64
	Now       time.Time
	Reference string
	// Sources is the column order of the snapshot and must include Reference.
	Sources []string
	Results map[string]SourceResult
}

// BuildSnapshot aligns every source against the reference, assembles the
// canonical events and marks best prices. Change labels are left empty; see
// AnnotateChanges.
//
// When the reference failed it returns ErrReferenceUnavailable together with
// the per-source status so the caller can publish a carried-over snapshot.
func BuildSnapshot(in Input) (*models.Snapshot, []models.SourceStatus, error) {
	status := make([]models.SourceStatus, len(in.Sources))
	events := make(map[string][]models.SourceEvent, len(in.Sources))

	for i, src := range in.Sources {
		st := models.SourceStatus{Source: src, OK: true}
		res, ok := in.Results[src]
		switch {
		case !ok:
			st.OK = false
			st.Error = "no result"
		case res.Err != nil:
			st.OK = false
			st.Error = res.Err.Error()
		case res.Raw == nil:
			st.OK = false
			st.Error = "empty extraction"
		default:
			parsed := res.Raw.Events()
			events[src] = parsed.Events
			st.Events = len(parsed.Events)
			st.Degraded = parsed.Degraded
			if parsed.Degraded > 0 {
				slog.Debug("Unparseable price cells", "source", src, "count", parsed.Degraded)
			}
		}
		status[i] = st
	}

	refIdx := indexOf(in.Sources, in.Reference)
	if refIdx < 0 {
		return nil, status, fmt.Errorf("reference %q is not among sources %v", in.Reference, in.Sources)
	}
	if !status[refIdx].OK {
		return nil, status, fmt.Errorf("%w: %s", ErrReferenceUnavailable, status[refIdx].Error)
	}

	pairs := ReferencePairs(events[in.Reference])
	blocks := make([][]AlignedBlock, len(in.Sources))
	for i, src := range in.Sources {
		if !status[i].OK {
			continue
		}
		if src == in.Reference {
			blocks[i] = make([]AlignedBlock, len(pairs))
			for j, ev := range events[src] {
				blocks[i][j] = AlignedBlock{Matched: true, Teams: pairs[j], Prices: ev.Prices}
			}
			continue
		}
		blocks[i] = Align(pairs, events[src])
		for _, b := range blocks[i] {
			if !b.Matched {
				status[i].Missed++
			}
		}
	}

	snap := &models.Snapshot{
		Cycle:       in.Cycle,
		GeneratedAt: in.Now,
		Reference:   in.Reference,
		Sources:     append([]string(nil), in.Sources...),
		Events:      make([]models.Event, len(pairs)),
		Status:      status,
	}

	for j, pair := range pairs {
		ev := models.Event{
			Key:   models.EventKey(pair.Team1, pair.Team2),
			Team1: pair.Team1,
			Team2: pair.Team2,
		}
		for slot, team := range [2]string{pair.Team1, pair.Team2} {
			prices := make([]odds.Price, len(in.Sources))
			for i := range in.Sources {
				if blocks[i] != nil {
					prices[i] = blocks[i][j].PriceFor(team)
				}
			}
			labels := ClassifyRow(prices)

			row := models.Row{Team: team, Cells: make([]models.Cell, len(in.Sources))}
			for i, src := range in.Sources {
				row.Cells[i] = models.Cell{Source: src, Price: prices[i], Best: labels[i]}
			}
			ev.Rows[slot] = row
		}
		snap.Events[j] = ev
	}

	return snap, status, nil
}

// CarryOver derives a stale snapshot from the last good one when the reference
// failed: same events and prices, no change labels, fresh status.
// last may be nil, in which case the snapshot has no events.
func CarryOver(last *models.Snapshot, in Input, status []models.SourceStatus) *models.Snapshot {
	snap := last.Clone()
	if snap == nil {
		snap = &models.Snapshot{Sources: append([]string(nil), in.Sources...)}
	}
	snap.Cycle = in.Cycle
	snap.GeneratedAt = in.Now
	snap.Reference = in.Reference
	snap.Status = status
	snap.Stale = true
	for ei := range snap.Events {
		for slot := range snap.Events[ei].Rows {
			cells := snap.Events[ei].Rows[slot].Cells
			for ci := range cells {
				cells[ci].Change = models.ChangeNone
			}
		}
	}
	return snap
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
