package fibonacci

import (
	"github.com/vnfinlab/vnquant/internal/domain"
)

// Standard retracement and extension ratios. Extension levels project
// below the swing low using the same formula.
var (
	retracementRatios = []ratio{
		{"0%", 0.0},
		{"23.6%", 0.236},
		{"38.2%", 0.382},
		{"50%", 0.5},
		{"61.8%", 0.618},
		{"78.6%", 0.786},
		{"100%", 1.0},
	}
	extensionRatios = []ratio{
		{"138.2%", 1.382},
		{"161.8%", 1.618},
		{"200%", 2.0},
		{"261.8%", 2.618},
	}
)

type ratio struct {
	label string
	value float64
}

// Levels computes Fibonacci price levels for a swing range. The price at
// ratio r is high - r*(high-low). Returns an empty map when high <= low;
// callers treat the absence of levels as "not computable".
func Levels(high, low float64, includeExtensions bool) map[string]float64 {
	if high <= low {
		return map[string]float64{}
	}

	span := high - low
	levels := make(map[string]float64, len(retracementRatios)+len(extensionRatios))
	for _, r := range retracementRatios {
		levels[r.label] = high - r.value*span
	}
	if includeExtensions {
		for _, r := range extensionRatios {
			levels[r.label] = high - r.value*span
		}
	}
	return levels
}

// SwingAnalysis describes the most recent swing range of a series and
// its derived Fibonacci levels.
type SwingAnalysis struct {
	SwingHigh      float64            `json:"swing_high"`
	SwingLow       float64            `json:"swing_low"`
	SwingHighIndex int                `json:"swing_high_index"`
	SwingLowIndex  int                `json:"swing_low_index"`
	Levels         map[string]float64 `json:"levels"`
	RangePercent   float64            `json:"range_percent"`
}

// RecentSwing restricts the series to its most recent lookbackBars bars,
// detects swings independently on the high-price and low-price columns,
// and computes levels from the latest swing high / swing low pair.
// Returns nil when the window is too short for the requested order or
// either detector found nothing.
func RecentSwing(series domain.PriceSeries, lookbackBars, swingOrder int, includeExtensions bool) *SwingAnalysis {
	if lookbackBars < swingOrder*3 {
		return nil
	}

	window := series.Tail(lookbackBars)
	highIdx, _ := FindSwings(window.Highs(), swingOrder)
	_, lowIdx := FindSwings(window.Lows(), swingOrder)
	if len(highIdx) == 0 || len(lowIdx) == 0 {
		return nil
	}

	hi := highIdx[len(highIdx)-1]
	lo := lowIdx[len(lowIdx)-1]
	swingHigh := window.Bars[hi].High
	swingLow := window.Bars[lo].Low

	analysis := &SwingAnalysis{
		SwingHigh:      swingHigh,
		SwingLow:       swingLow,
		SwingHighIndex: hi,
		SwingLowIndex:  lo,
		Levels:         Levels(swingHigh, swingLow, includeExtensions),
	}
	if swingLow > 0 {
		analysis.RangePercent = (swingHigh - swingLow) / swingLow * 100
	}
	return analysis
}
