package validation

import (
	"errors"
	"fmt"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

var ErrInvalidExtraction = errors.New("invalid extraction")

// ValidateExtraction rejects extractions the aligner cannot interpret. Missing
// or unparseable prices are not errors; they become Absent cells downstream.
func ValidateExtraction(raw *models.RawExtraction) error {
	if raw == nil {
		return fmt.Errorf("%w: nil extraction", ErrInvalidExtraction)
	}
	if err := raw.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: layout: %v", ErrInvalidExtraction, err)
	}
	if len(raw.Teams) == 0 && len(raw.Prices) > 0 {
		return fmt.Errorf("%w: %d price cells without team names", ErrInvalidExtraction, len(raw.Prices))
	}
	for i, t := range raw.Teams {
		if t == "" {
			return fmt.Errorf("%w: team %d has an empty name", ErrInvalidExtraction, i)
		}
	}
	return nil
}
