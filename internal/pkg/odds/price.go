package odds

import (
	"encoding/json"
	"strconv"
	"strings"
)

// unicodeMinus is U+2212, which some books render instead of ASCII '-'.
const unicodeMinus = '−'

// Price is a moneyline in American odds. The zero value is Absent.
//
// A present price is never zero: negative marks a favorite, positive an underdog.
type Price struct {
	value int
	ok    bool
}

// Absent is the price of an empty or unreadable cell.
var Absent = Price{}

// American returns a present price. Zero yields Absent.
func American(v int) Price {
	if v == 0 {
		return Absent
	}
	return Price{value: v, ok: true}
}

// Parse converts a raw price token into a Price.
// It never fails: anything that is not a signed integer degrades to Absent.
func Parse(token string) Price {
	s := strings.TrimSpace(token)
	if s == "" {
		return Absent
	}

	s = strings.ReplaceAll(s, string(unicodeMinus), "-")
	if s[0] != '+' && s[0] != '-' {
		return Absent
	}

	digits := s[1:]
	if digits == "" {
		return Absent
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Absent
		}
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return Absent
	}
	return American(v)
}

// Value returns the signed American odds and whether the price is present.
func (p Price) Value() (int, bool) {
	return p.value, p.ok
}

// IsAbsent reports whether the cell carried no usable price.
func (p Price) IsAbsent() bool {
	return !p.ok
}

// IsFavorite reports a present negative price.
func (p Price) IsFavorite() bool {
	return p.ok && p.value < 0
}

// IsUnderdog reports a present positive price.
func (p Price) IsUnderdog() bool {
	return p.ok && p.value > 0
}

// String renders the price the way books print it: "+130", "-150", or "" when absent.
func (p Price) String() string {
	if !p.ok {
		return ""
	}
	if p.value > 0 {
		return "+" + strconv.Itoa(p.value)
	}
	return strconv.Itoa(p.value)
}

// ImpliedProbability returns the bookmaker's implied win probability in percent.
// -150 → 60, +130 → 43.48. Absent prices return 0.
func (p Price) ImpliedProbability() float64 {
	if !p.ok {
		return 0
	}
	if p.value > 0 {
		return 100 / float64(p.value+100) * 100
	}
	neg := float64(-p.value)
	return neg / (neg + 100) * 100
}

// MarshalJSON encodes a present price as a number and Absent as null.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(p.value)), nil
}

// UnmarshalJSON accepts a number, a book-formatted string, or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Absent
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = American(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = Parse(s)
	return nil
}
