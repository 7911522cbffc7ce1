package draftkings

import (
	"reflect"
	"testing"

	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

func TestStripCity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NY Yankees", "Yankees"},
		{"  BOS Red Sox ", "Red Sox"},
		{"Athletics", "Athletics"},
		{"Guardians", "Guardians"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripCity(tt.in); got != tt.want {
			t.Errorf("StripCity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	pg := page{
		Teams: []string{"NY Yankees", "BOS Red Sox"},
		Cells: []cell{
			{Text: "-110"}, {Text: "−105"}, {Text: "−150"},
			{Empty: true}, {Text: "SUSPENDED"}, {Text: "-115"}, {Text: " +130 "},
		},
	}
	raw := extract(pg)

	if want := []string{"Yankees", "Red Sox"}; !reflect.DeepEqual(raw.Teams, want) {
		t.Errorf("teams = %v, want %v", raw.Teams, want)
	}
	if want := []string{"-110", "-105", "-150", "", "-115", "+130"}; !reflect.DeepEqual(raw.Prices, want) {
		t.Errorf("prices = %v, want %v", raw.Prices, want)
	}

	raw.Layout = models.SixPackLayout
	ev := raw.Events().Events
	if len(ev) != 1 {
		t.Fatalf("got %d events", len(ev))
	}
	if v, _ := ev[0].Prices[0].Value(); v != -150 {
		t.Errorf("Yankees moneyline = %d, want -150", v)
	}
	if v, _ := ev[0].Prices[1].Value(); v != 130 {
		t.Errorf("Red Sox moneyline = %d, want 130", v)
	}
}

func TestNew_LayoutOverride(t *testing.T) {
	override := models.MoneylineLayout
	p, err := New("dk", config.SourceConfig{Layout: &override})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dk := p.(*Producer)
	if dk.Name() != "dk" || dk.layout != override {
		t.Errorf("producer = %+v", dk)
	}
}
