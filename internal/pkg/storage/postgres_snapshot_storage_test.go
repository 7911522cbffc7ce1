package storage

import (
	"reflect"
	"testing"

	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

func twoEventSnapshot() *models.Snapshot {
	a := odds.American
	cells := func(dk, mgm odds.Price) []models.Cell {
		return []models.Cell{{Source: "draftkings", Price: dk}, {Source: "betmgm", Price: mgm}}
	}
	s := &models.Snapshot{
		Sources: []string{"draftkings", "betmgm"},
		Events: []models.Event{
			{Key: models.EventKey("Yankees", "Red Sox"), Team1: "Yankees", Team2: "Red Sox", Rows: [2]models.Row{
				{Team: "Yankees", Cells: cells(a(-150), a(-140))},
				{Team: "Red Sox", Cells: cells(a(130), odds.Absent)},
			}},
			{Key: models.EventKey("Cubs", "Mets"), Team1: "Cubs", Team2: "Mets", Rows: [2]models.Row{
				{Team: "Cubs", Cells: cells(a(110), a(115))},
				{Team: "Mets", Cells: cells(a(-130), a(-135))},
			}},
		},
	}
	s.Events[0].Rows[0].Cells[1].Best = models.BestFavorite
	s.Events[0].Rows[0].Cells[1].Change = models.ChangeImproved
	return s
}

func TestFlattenAssemble(t *testing.T) {
	snap := twoEventSnapshot()
	rows := flattenSnapshot(snap)
	if len(rows) != 8 {
		t.Fatalf("got %d rows, want 8", len(rows))
	}
	if rows[3].Price.Valid {
		t.Error("absent price should be stored as NULL")
	}

	// Storage returns rows in arbitrary order before sorting.
	shuffled := append([]cellRow(nil), rows[4:]...)
	shuffled = append(shuffled, rows[:4]...)
	shuffled[0], shuffled[3] = shuffled[3], shuffled[0]

	got := &models.Snapshot{Sources: snap.Sources}
	assembleSnapshot(got, shuffled)

	if !reflect.DeepEqual(got.Events, snap.Events) {
		t.Errorf("events differ\ngot:  %+v\nwant: %+v", got.Events, snap.Events)
	}
}

func TestAssembleSnapshot_Empty(t *testing.T) {
	got := &models.Snapshot{}
	assembleSnapshot(got, nil)
	if len(got.Events) != 0 {
		t.Errorf("events = %+v", got.Events)
	}
}

func TestNewStorage_RequiresAddress(t *testing.T) {
	if _, err := NewPostgresSnapshotStorage(&config.PostgresConfig{}); err == nil {
		t.Error("expected an error without a DSN")
	}
	if _, err := NewRedisPublisher(&config.RedisConfig{}); err == nil {
		t.Error("expected an error without an address")
	}
}
