package calculator

import (
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

// ClassifyRow marks the best underdog price (highest positive) and the best
// favorite price (negative closest to zero) among one team's prices.
// Ties go to the first source in order; absent prices are never marked.
func ClassifyRow(prices []odds.Price) []models.BestLabel {
	labels := make([]models.BestLabel, len(prices))

	posIdx, negIdx := -1, -1
	var maxPos, minNeg int
	for i, p := range prices {
		v, ok := p.Value()
		if !ok {
			continue
		}
		switch {
		case v > 0:
			if posIdx < 0 || v > maxPos {
				maxPos, posIdx = v, i
			}
		case v < 0:
			if negIdx < 0 || v > minNeg {
				minNeg, negIdx = v, i
			}
		}
	}

	if posIdx >= 0 {
		labels[posIdx] = models.BestUnderdog
	}
	if negIdx >= 0 {
		labels[negIdx] = models.BestFavorite
	}
	return labels
}
