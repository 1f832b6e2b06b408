// Package features turns a user's outflow transactions into the fixed-size
// FeatureVector used for persona clustering.
package features

import (
	"math"
	"sort"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/Dan9191/bank-insights/internal/utils"
)

// DefaultMinTransactions is the smallest outflow sample a vector is built from
const DefaultMinTransactions = 10

const (
	eveningHour  = 18
	windowDays   = 30.0
	hoursPerDay  = 24.0
	componentTag = "feature extractor"
)

// Extractor computes feature vectors
type Extractor struct {
	minTransactions int
}

// NewExtractor creates an extractor; values below 1 fall back to DefaultMinTransactions
func NewExtractor(minTransactions int) *Extractor {
	if minTransactions < 1 {
		minTransactions = DefaultMinTransactions
	}
	return &Extractor{minTransactions: minTransactions}
}

// Extract builds a FeatureVector from a user's transactions. Inflows are
// ignored. Fewer outflows than the configured minimum yields an
// *models.InsufficientDataError and no vector.
func (e *Extractor) Extract(txns []models.Transaction) (*models.FeatureVector, error) {
	outflows := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.IsOutflow() {
			outflows = append(outflows, t)
		}
	}
	if len(outflows) < e.minTransactions {
		return nil, &models.InsufficientDataError{Component: componentTag, Have: len(outflows), Need: e.minTransactions}
	}

	sort.SliceStable(outflows, func(i, j int) bool {
		return outflows[i].OccurredAt.Before(outflows[j].OccurredAt)
	})

	magnitudes := make([]float64, len(outflows))
	var total, weekend, maxMag float64
	var evening int
	categoryCounts := make(map[models.Category]int)
	var categoryOrder []models.Category

	for i, t := range outflows {
		m := t.Magnitude()
		magnitudes[i] = m
		total += m
		if m > maxMag {
			maxMag = m
		}
		if utils.IsWeekend(t.OccurredAt) {
			weekend += m
		}
		if t.OccurredAt.Hour() >= eveningHour {
			evening++
		}
		if _, seen := categoryCounts[t.Category]; !seen {
			categoryOrder = append(categoryOrder, t.Category)
		}
		categoryCounts[t.Category]++
	}

	var top models.Category
	best := 0
	for _, c := range categoryOrder {
		if categoryCounts[c] > best {
			best = categoryCounts[c]
			top = c
		}
	}

	count := len(outflows)
	span := outflows[count-1].OccurredAt.Sub(outflows[0].OccurredAt).Hours() / hoursPerDay
	days := math.Floor(span) + 1

	return &models.FeatureVector{
		UserID:             outflows[0].UserID,
		AvgMagnitude:       utils.Mean(magnitudes),
		MedianMagnitude:    utils.Median(magnitudes),
		StdMagnitude:       utils.SampleStdDev(magnitudes),
		TotalOutflow:       total,
		Count:              count,
		Frequency:          float64(count) / days * windowDays,
		WeekendRatio:       utils.SafeRatio(weekend, total),
		EveningRatio:       utils.SafeRatio(float64(evening), float64(count)),
		DistinctCategories: len(categoryOrder),
		MaxMagnitude:       maxMag,
		TopCategory:        top,
	}, nil
}
