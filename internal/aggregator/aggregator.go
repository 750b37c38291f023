// Package aggregator folds classified detections into a bin's running
// counts, weight, fill level and status tier.
//
// Everything here is a pure function of its inputs; the engine owns the
// state and decides when to commit the results.
package aggregator

import (
	"math"

	"github.com/rewired-gh/smartbin/internal/models"
)

const (
	// WeightPerItem is the estimated weight in kg added per detected item.
	WeightPerItem = 0.5
	// MaxWeightDelta caps how far one burst of detections can move weight.
	MaxWeightDelta = 25.0
	// DefaultCapacity is the item count treated as a full bin when no gauge is fitted.
	DefaultCapacity = 50

	WarningFill  = 75.0
	CriticalFill = 90.0
)

// Apply adds one count per classified entry and returns the new counts and
// weight. No entries means no change.
func Apply(counts models.CategoryCounts, weight float64, categories []models.Category) (models.CategoryCounts, float64) {
	if len(categories) == 0 {
		return counts, weight
	}
	for _, c := range categories {
		counts = counts.Inc(c)
	}
	return counts, weight + WeightDelta(len(categories))
}

// WeightDelta is the weight added for n items detected in a single cycle.
func WeightDelta(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(MaxWeightDelta, float64(n)*WeightPerItem)
}

// StatusFor derives the status tier from a fill percentage.
func StatusFor(fill float64) models.Status {
	switch {
	case fill >= CriticalFill:
		return models.StatusCritical
	case fill >= WarningFill:
		return models.StatusWarning
	default:
		return models.StatusNormal
	}
}

// ClampFill bounds a reading to 0–100 and rounds it to two decimals.
func ClampFill(fill float64) float64 {
	if math.IsNaN(fill) || fill < 0 {
		return 0
	}
	if fill > 100 {
		return 100
	}
	return math.Round(fill*100) / 100
}

// DerivedFill estimates fill from the item count for bins without a gauge:
// min(100, round(total / capacity * 100)).
func DerivedFill(total, capacity int) float64 {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return math.Min(100, math.Round(float64(total)/float64(capacity)*100))
}

// Contamination summarizes how much of a bin's content matches its target.
type Contamination struct {
	Correct int `json:"correct"`
	Wrong   int `json:"contaminated"`
	Percent int `json:"rate_percent"` // rounded; 0 for an empty bin
}

// ContaminationOf computes contamination statistics for counts against target.
func ContaminationOf(counts models.CategoryCounts, target models.Category) Contamination {
	total := counts.Total()
	correct := counts.Get(target)
	c := Contamination{Correct: correct, Wrong: total - correct}
	if total > 0 {
		c.Percent = int(math.Round(float64(c.Wrong) / float64(total) * 100))
	}
	return c
}
