package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// BlockLayout is the per-source price-block contract: where, inside the flat
// price list a source renders, each team's moneyline sits.
//
// Event i reads Prices[i*Stride+Team1Slot] for its first listed team and
// Prices[i*Stride+Team2Slot] for its second.
type BlockLayout struct {
	Stride    int `yaml:"stride" json:"stride"`
	Team1Slot int `yaml:"team1_slot" json:"team1_slot"`
	Team2Slot int `yaml:"team2_slot" json:"team2_slot"`
}

// SixPackLayout is the spread/total/moneyline grid used by DraftKings and BetMGM:
// six cells per event in row order, moneyline last in each row.
var SixPackLayout = BlockLayout{Stride: 6, Team1Slot: 2, Team2Slot: 5}

// MoneylineLayout is a plain two-cell moneyline list (FanDuel).
var MoneylineLayout = BlockLayout{Stride: 2, Team1Slot: 0, Team2Slot: 1}

// Validate checks that both slots fall inside one block.
func (l BlockLayout) Validate() error {
	if l.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", l.Stride)
	}
	if l.Team1Slot < 0 || l.Team1Slot >= l.Stride {
		return fmt.Errorf("team1_slot %d outside block of %d", l.Team1Slot, l.Stride)
	}
	if l.Team2Slot < 0 || l.Team2Slot >= l.Stride {
		return fmt.Errorf("team2_slot %d outside block of %d", l.Team2Slot, l.Stride)
	}
	if l.Team1Slot == l.Team2Slot {
		return fmt.Errorf("team1_slot and team2_slot must differ")
	}
	return nil
}

// RawExtraction is what one source produced in one poll cycle: team names in
// page order (two per event) and price cells ("" for empty cells).
type RawExtraction struct {
	Source    string      `yaml:"source" json:"source"`
	Teams     []string    `yaml:"teams" json:"teams"`
	Prices    []string    `yaml:"prices" json:"prices"`
	Layout    BlockLayout `yaml:"layout" json:"layout"`
	FetchedAt time.Time   `yaml:"-" json:"fetched_at"`
}

// PriceBlock holds one event's moneylines in the source's own team order.
type PriceBlock [2]odds.Price

// Pair is an event's two team names.
type Pair struct {
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
}

// SameTeams reports whether two pairs name the same teams in any order.
func (p Pair) SameTeams(o Pair) bool {
	return (p.Team1 == o.Team1 && p.Team2 == o.Team2) ||
		(p.Team1 == o.Team2 && p.Team2 == o.Team1)
}

// SourceEvent is one event as a single source lists it.
type SourceEvent struct {
	Pair
	Prices PriceBlock
}

// EventsResult carries the events plus how many price cells failed to parse.
type EventsResult struct {
	Events   []SourceEvent
	Degraded int
}

// Events applies the layout and pairs team names two per event.
// Cells past the end of the price list read as Absent. A trailing unpaired
// team gets an empty opponent.
func (r *RawExtraction) Events() EventsResult {
	var res EventsResult
	if r == nil {
		return res
	}

	n := (len(r.Teams) + 1) / 2
	res.Events = make([]SourceEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := SourceEvent{}
		ev.Team1 = strings.TrimSpace(r.Teams[i*2])
		if i*2+1 < len(r.Teams) {
			ev.Team2 = strings.TrimSpace(r.Teams[i*2+1])
		}

		for slot, offset := range [2]int{r.Layout.Team1Slot, r.Layout.Team2Slot} {
			idx := i*r.Layout.Stride + offset
			if idx >= len(r.Prices) {
				continue
			}
			token := r.Prices[idx]
			p := odds.Parse(token)
			if p.IsAbsent() && strings.TrimSpace(token) != "" {
				res.Degraded++
			}
			ev.Prices[slot] = p
		}
		res.Events = append(res.Events, ev)
	}
	return res
}
