package calculator

import (
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// ClassifyChange compares a cell's price with the previous cycle's.
// For American odds a larger number is always better for the bettor on the
// same side: -120 → -110 and +120 → +130 both improve. No direction is claimed
// when either side is absent, the sign flips, or nothing moved.
func ClassifyChange(prev, cur odds.Price) models.ChangeLabel {
	p, okPrev := prev.Value()
	c, okCur := cur.Value()
	if !okPrev || !okCur {
		return models.ChangeNone
	}
	if (p < 0) != (c < 0) {
		return models.ChangeNone
	}
	switch {
	case c > p:
		return models.ChangeImproved
	case c < p:
		return models.ChangeWorsened
	}
	return models.ChangeNone
}

// LineMovement is a single cell that moved this cycle.
type LineMovement struct {
	Key      models.CellKey
	Team     string
	Previous odds.Price
	Current  odds.Price
	Change   models.ChangeLabel
	Best     models.BestLabel
}

// AnnotateChanges fills Cell.Change on next by comparing every cell with the
// cell under the same CellKey in prev, and returns the cells that moved.
// next must not be published yet.
func AnnotateChanges(prev, next *models.Snapshot) []LineMovement {
	if next == nil {
		return nil
	}
	before := prev.Lookup()

	var moves []LineMovement
	for ei := range next.Events {
		ev := &next.Events[ei]
		for slot := range ev.Rows {
			row := &ev.Rows[slot]
			for ci := range row.Cells {
				cell := &row.Cells[ci]
				key := models.CellKey{Team1: ev.Team1, Team2: ev.Team2, Slot: slot, Source: cell.Source}

				old, ok := before[key]
				if !ok {
					old.Price = odds.Absent
				}
				cell.Change = ClassifyChange(old.Price, cell.Price)
				if cell.Change == models.ChangeNone {
					continue
				}
				moves = append(moves, LineMovement{
					Key:      key,
					Team:     row.Team,
					Previous: old.Price,
					Current:  cell.Price,
					Change:   cell.Change,
					Best:     cell.Best,
				})
			}
		}
	}
	return moves
}
