package fibonacci

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func TestFindSwings(t *testing.T) {
	tests := []struct {
		name      string
		prices    []float64
		order     int
		wantHighs []int
		wantLows  []int
	}{
		{
			name:      "single peak and trough",
			prices:    []float64{1, 2, 5, 2, 1, 0.5, 1, 2},
			order:     2,
			wantHighs: []int{2},
			wantLows:  []int{5},
		},
		{
			name:      "too short returns empty",
			prices:    []float64{1, 2, 3, 2, 1},
			order:     2,
			wantHighs: nil,
			wantLows:  nil,
		},
		{
			name:      "ties are not extrema",
			prices:    []float64{1, 3, 3, 1, 2, 1, 2, 1},
			order:     1,
			wantHighs: []int{4, 6},
			wantLows:  []int{3, 5},
		},
		{
			name:      "monotonic series has no swings",
			prices:    []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
			order:     2,
			wantHighs: nil,
			wantLows:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			highs, lows := FindSwings(tt.prices, tt.order)
			assert.Equal(t, tt.wantHighs, highs)
			assert.Equal(t, tt.wantLows, lows)
		})
	}
}

func TestFindSwingsPanicsOnBadOrder(t *testing.T) {
	assert.Panics(t, func() {
		FindSwings([]float64{1, 2, 3}, 0)
	})
}

func TestFindSwingsMinDistance(t *testing.T) {
	// Alternating peaks one bar apart; distance filter keeps every other one.
	prices := []float64{1, 5, 1, 6, 1, 7, 1, 8, 1}
	highs, _ := FindSwingsMinDistance(prices, 1, 4)
	assert.Equal(t, []int{1, 5}, highs)
}

func TestLevelsEndpoints(t *testing.T) {
	levels := Levels(120, 100, false)
	require.NotEmpty(t, levels)

	assert.InDelta(t, 120.0, levels["0%"], 1e-12)
	assert.InDelta(t, 100.0, levels["100%"], 1e-12)
	assert.InDelta(t, 107.64, levels["61.8%"], 1e-9)

	// Monotonically decreasing as the ratio grows.
	ordered := []string{"0%", "23.6%", "38.2%", "50%", "61.8%", "78.6%", "100%"}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, levels[ordered[i]], levels[ordered[i-1]],
			"level %s should sit below %s", ordered[i], ordered[i-1])
	}
}

func TestLevelsExtensions(t *testing.T) {
	levels := Levels(120, 100, true)
	require.Contains(t, levels, "161.8%")

	// Extensions project below the swing low.
	for _, label := range []string{"138.2%", "161.8%", "200%", "261.8%"} {
		assert.Less(t, levels[label], 100.0)
	}
	assert.InDelta(t, 80.0, levels["200%"], 1e-12)
}

func TestLevelsDegenerateRange(t *testing.T) {
	assert.Empty(t, Levels(100, 100, true))
	assert.Empty(t, Levels(90, 100, false))
}

func TestRecentSwing(t *testing.T) {
	series := syntheticSeries([]float64{10, 11, 14, 11, 10, 9, 8, 9, 10, 11})

	analysis := RecentSwing(series, 10, 2, false)
	require.NotNil(t, analysis)

	assert.Equal(t, 2, analysis.SwingHighIndex)
	assert.Equal(t, 6, analysis.SwingLowIndex)
	assert.InDelta(t, 14.5, analysis.SwingHigh, 1e-12)
	assert.InDelta(t, 7.5, analysis.SwingLow, 1e-12)
	assert.InDelta(t, (14.5-7.5)/7.5*100, analysis.RangePercent, 1e-9)

	labels := make([]string, 0, len(analysis.Levels))
	for l := range analysis.Levels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	assert.Len(t, labels, 7)
}

func TestRecentSwingShortLookback(t *testing.T) {
	series := syntheticSeries([]float64{10, 11, 12, 11, 10})
	assert.Nil(t, RecentSwing(series, 5, 2, false))
}

func TestRecentSwingNoExtrema(t *testing.T) {
	series := syntheticSeries([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.Nil(t, RecentSwing(series, 10, 2, false))
}

// syntheticSeries builds a daily series where high = close + 0.5 and
// low = close - 0.5, so extrema land on the same bars as the closes.
func syntheticSeries(closes []float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return domain.PriceSeries{Symbol: "TEST", Bars: bars}
}
