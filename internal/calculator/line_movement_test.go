package calculator

import (
	"testing"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

func TestClassifyChange(t *testing.T) {
	a := odds.American
	tests := []struct {
		name      string
		prev, cur odds.Price
		want      models.ChangeLabel
	}{
		{"favorite toward zero", a(-120), a(-110), models.ChangeImproved},
		{"favorite away from zero", a(-110), a(-120), models.ChangeWorsened},
		{"underdog up", a(120), a(130), models.ChangeImproved},
		{"underdog down", a(130), a(120), models.ChangeWorsened},
		{"no previous", odds.Absent, a(100), models.ChangeNone},
		{"now absent", a(100), odds.Absent, models.ChangeNone},
		{"sign flip", a(-110), a(110), models.ChangeNone},
		{"sign flip back", a(105), a(-105), models.ChangeNone},
		{"equal", a(-110), a(-110), models.ChangeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyChange(tt.prev, tt.cur); got != tt.want {
				t.Errorf("ClassifyChange(%s, %s) = %q, want %q", tt.prev, tt.cur, got, tt.want)
			}
		})
	}
}

func snapshotOf(events ...models.Event) *models.Snapshot {
	return &models.Snapshot{Sources: []string{"dk", "mgm"}, Events: events}
}

func event(t1, t2 string, p1, p2 [2]odds.Price) models.Event {
	cells := func(p [2]odds.Price) []models.Cell {
		return []models.Cell{{Source: "dk", Price: p[0]}, {Source: "mgm", Price: p[1]}}
	}
	return models.Event{
		Key:   models.EventKey(t1, t2),
		Team1: t1,
		Team2: t2,
		Rows:  [2]models.Row{{Team: t1, Cells: cells(p1)}, {Team: t2, Cells: cells(p2)}},
	}
}

func TestAnnotateChanges_SurvivesReordering(t *testing.T) {
	a := odds.American
	prev := snapshotOf(
		event("A", "B", [2]odds.Price{a(-120), a(-115)}, [2]odds.Price{a(100), a(105)}),
		event("C", "D", [2]odds.Price{a(-150), odds.Absent}, [2]odds.Price{a(130), a(125)}),
	)
	next := snapshotOf(
		event("C", "D", [2]odds.Price{a(-140), a(-155)}, [2]odds.Price{a(120), a(125)}),
		event("A", "B", [2]odds.Price{a(-120), a(-110)}, [2]odds.Price{a(110), a(105)}),
	)

	moves := AnnotateChanges(prev, next)

	want := map[models.CellKey]models.ChangeLabel{
		{Team1: "C", Team2: "D", Slot: 0, Source: "dk"}:  models.ChangeImproved,
		{Team1: "C", Team2: "D", Slot: 0, Source: "mgm"}: models.ChangeNone,
		{Team1: "C", Team2: "D", Slot: 1, Source: "dk"}:  models.ChangeWorsened,
		{Team1: "C", Team2: "D", Slot: 1, Source: "mgm"}: models.ChangeNone,
		{Team1: "A", Team2: "B", Slot: 0, Source: "dk"}:  models.ChangeNone,
		{Team1: "A", Team2: "B", Slot: 0, Source: "mgm"}: models.ChangeImproved,
		{Team1: "A", Team2: "B", Slot: 1, Source: "dk"}:  models.ChangeImproved,
		{Team1: "A", Team2: "B", Slot: 1, Source: "mgm"}: models.ChangeNone,
	}
	for key, label := range want {
		c, ok := next.Cell(key)
		if !ok {
			t.Fatalf("cell %v missing", key)
		}
		if c.Change != label {
			t.Errorf("cell %v change = %q, want %q", key, c.Change, label)
		}
	}
	if len(moves) != 4 {
		t.Errorf("got %d movements, want 4", len(moves))
	}
}

func TestAnnotateChanges_NoPrevious(t *testing.T) {
	a := odds.American
	next := snapshotOf(event("A", "B", [2]odds.Price{a(-120), a(-110)}, [2]odds.Price{a(100), a(105)}))
	if moves := AnnotateChanges(nil, next); len(moves) != 0 {
		t.Errorf("first cycle should report no movement, got %d", len(moves))
	}
	for _, row := range next.Events[0].Rows {
		for _, c := range row.Cells {
			if c.Change != models.ChangeNone {
				t.Errorf("cell %s change = %q on first cycle", c.Source, c.Change)
			}
		}
	}
}
