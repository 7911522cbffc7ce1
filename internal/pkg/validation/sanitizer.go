package validation

import (
	"regexp"
	"strings"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

const maxTeamNameLen = 100

var (
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	zeroWidth    = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// SanitizeExtraction cleans team names and price tokens in place.
func SanitizeExtraction(raw *models.RawExtraction) {
	if raw == nil {
		return
	}
	for i, t := range raw.Teams {
		raw.Teams[i] = SanitizeTeamName(t)
	}
	for i, p := range raw.Prices {
		p = zeroWidth.ReplaceAllString(p, "")
		raw.Prices[i] = strings.TrimSpace(controlChars.ReplaceAllString(p, ""))
	}
}

// SanitizeTeamName strips control and zero-width characters, turns
// non-breaking spaces into spaces and collapses whitespace.
func SanitizeTeamName(name string) string {
	sanitized := zeroWidth.ReplaceAllString(name, "")
	sanitized = controlChars.ReplaceAllString(sanitized, " ")
	sanitized = strings.ReplaceAll(sanitized, "\u00a0", " ")
	sanitized = spaceRuns.ReplaceAllString(sanitized, " ")
	sanitized = strings.TrimSpace(sanitized)

	if len(sanitized) > maxTeamNameLen {
		sanitized = strings.TrimSpace(sanitized[:maxTeamNameLen])
	}
	return sanitized
}
