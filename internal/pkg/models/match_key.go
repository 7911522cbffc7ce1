package models

import (
	"strconv"
	"strings"
)

// CellKey identifies a price cell across cycles. It is derived from the
// reference team-name pair, never from an event's position in the list.
type CellKey struct {
	Team1  string
	Team2  string
	Slot   int
	Source string
}

// String renders the key in the same "a|b|..." shape EventKey uses.
func (k CellKey) String() string {
	return EventKey(k.Team1, k.Team2) + "|" + strconv.Itoa(k.Slot) + "|" + normalizeKeyPart(k.Source)
}

// EventKey builds a stable identifier for a canonical event.
// Format: team1|team2 (reference order, lowercased, whitespace collapsed).
func EventKey(team1, team2 string) string {
	return normalizeKeyPart(team1) + "|" + normalizeKeyPart(team2)
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "|", " ")
	s = strings.Join(strings.Fields(s), " ")
	return s
}
