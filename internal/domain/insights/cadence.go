package insights

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Cadence is the typical spacing of a recurring payment.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
	CadenceUnknown   Cadence = "irregular"
)

// detectCadence classifies the mean gap between dates. Confidence falls as
// the gaps get less regular and is halved when no cadence fits.
func detectCadence(dates []time.Time) (Cadence, float64) {
	if len(dates) < 2 {
		return CadenceUnknown, 0
	}

	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Sub(sorted[i-1]).Hours()/24)
	}

	mean, std := stat.PopMeanStdDev(intervals, nil)
	if mean == 0 {
		return CadenceUnknown, 0
	}
	confidence := 1 - math.Min(std/mean, 1)

	switch {
	case mean >= 5 && mean <= 9:
		return CadenceWeekly, confidence
	case mean >= 25 && mean <= 35:
		return CadenceMonthly, confidence
	case mean >= 85 && mean <= 100:
		return CadenceQuarterly, confidence
	case mean >= 350 && mean <= 380:
		return CadenceAnnual, confidence
	default:
		return CadenceUnknown, confidence * 0.5
	}
}
