package calculator

import (
	"reflect"
	"testing"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

func TestClassifyRow(t *testing.T) {
	const (
		none = models.BestNone
		dog  = models.BestUnderdog
		fav  = models.BestFavorite
	)
	a := odds.American

	tests := []struct {
		name   string
		prices []odds.Price
		want   []models.BestLabel
	}{
		{"mixed row", []odds.Price{a(-150), a(-170), a(140)}, []models.BestLabel{fav, none, dog}},
		{"underdog tie goes to first", []odds.Price{a(100), a(100), odds.Absent}, []models.BestLabel{dog, none, none}},
		{"favorite tie goes to first", []odds.Price{a(-110), a(-120), a(-110)}, []models.BestLabel{fav, none, none}},
		{"highest underdog", []odds.Price{a(120), a(135), a(130)}, []models.BestLabel{none, dog, none}},
		{"all absent", []odds.Price{odds.Absent, odds.Absent, odds.Absent}, []models.BestLabel{none, none, none}},
		{"absent skipped", []odds.Price{odds.Absent, a(-105), a(-115)}, []models.BestLabel{none, fav, none}},
		{"single source", []odds.Price{a(-110)}, []models.BestLabel{fav}},
		{"empty row", nil, []models.BestLabel{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRow(tt.prices)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ClassifyRow(%v) = %v, want %v", tt.prices, got, tt.want)
			}
		})
	}
}
