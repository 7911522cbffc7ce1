package calculator

import (
	"strings"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// AlignedBlock is the price block a source contributes to one reference event.
// Teams keep the source's own order; prices are never reordered.
type AlignedBlock struct {
	Matched bool
	Teams   models.Pair
	Prices  models.PriceBlock
}

// PriceFor reads the price the source quoted for team, by name.
// Unmatched blocks and unknown teams read as Absent.
func (b AlignedBlock) PriceFor(team string) odds.Price {
	if !b.Matched {
		return odds.Absent
	}
	team = strings.TrimSpace(team)
	switch team {
	case b.Teams.Team1:
		return b.Prices[0]
	case b.Teams.Team2:
		return b.Prices[1]
	}
	return odds.Absent
}

// Align matches each reference event against a source's event list by team set
// and returns one block per reference event, in reference order.
//
// The first source event naming the same two teams wins; later duplicates are
// ignored. Reference events with no match get an all-Absent placeholder, and
// source events matching no reference event are dropped.
func Align(ref []models.Pair, src []models.SourceEvent) []AlignedBlock {
	out := make([]AlignedBlock, len(ref))
	for i, r := range ref {
		r = trimPair(r)
		for _, ev := range src {
			if r.SameTeams(trimPair(ev.Pair)) {
				out[i] = AlignedBlock{Matched: true, Teams: trimPair(ev.Pair), Prices: ev.Prices}
				break
			}
		}
	}
	return out
}

// ReferencePairs extracts the canonical event list from the reference source.
func ReferencePairs(events []models.SourceEvent) []models.Pair {
	out := make([]models.Pair, len(events))
	for i, ev := range events {
		out[i] = trimPair(ev.Pair)
	}
	return out
}

func trimPair(p models.Pair) models.Pair {
	return models.Pair{Team1: strings.TrimSpace(p.Team1), Team2: strings.TrimSpace(p.Team2)}
}
