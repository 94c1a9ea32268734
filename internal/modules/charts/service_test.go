package charts

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func TestRangeToBars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "1 month", input: "1M", want: 21},
		{name: "3 months", input: "3M", want: 63},
		{name: "1 year", input: "1Y", want: 250},
		{name: "5 years", input: "5Y", want: 1250},
		{name: "lowercase", input: "6m", want: 126},
		{name: "all time", input: "all", want: 100000},
		{name: "empty string", input: "", want: 100000},
		{name: "garbage", input: "soon", want: 100000},
		{name: "zero count", input: "0Y", want: 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rangeToBars(tt.input))
		})
	}
}

type stubPrices struct {
	series domain.PriceSeries
}

func (s *stubPrices) GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error) {
	return s.series, nil
}

func trendingSeries(symbol string, n int) domain.PriceSeries {
	series := domain.PriceSeries{Symbol: symbol}
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := 100 + float64(i)*0.2 + 3*math.Sin(float64(i)/7)
		series.Bars = append(series.Bars, domain.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   close - 0.2,
			High:   close + 0.6,
			Low:    close - 0.6,
			Close:  close,
			Volume: 1000 + float64(i%10)*50,
		})
	}
	return series
}

func TestGetChartDataAssemblesPanes(t *testing.T) {
	source := &stubPrices{series: trendingSeries("FPT", 120)}
	svc := NewService(source, zerolog.Nop())

	data, err := svc.GetChartData("FPT", "6M")
	require.NoError(t, err)

	assert.Equal(t, "FPT", data.Symbol)
	assert.Len(t, data.Dates, 120)
	assert.Len(t, data.Close, 120)
	assert.Equal(t, "2024-01-02", data.Dates[0])

	// 120 bars clears the 20 and 50 day overlays but not the 200 day EMA.
	assert.Contains(t, data.Overlays, "sma_20")
	assert.Contains(t, data.Overlays, "sma_50")
	assert.Contains(t, data.Overlays, "atr_14")
	assert.NotContains(t, data.Overlays, "ema_200")
	assert.Len(t, data.Overlays["sma_20"], 120)

	require.Len(t, data.RSI, 120)
	require.NotNil(t, data.MACD)
	require.NotNil(t, data.Bollinger)
	assert.Len(t, data.OBV, 120)
}

func TestGetChartDataShortWindowOmitsPanes(t *testing.T) {
	source := &stubPrices{series: trendingSeries("VNM", 10)}
	svc := NewService(source, zerolog.Nop())

	data, err := svc.GetChartData("VNM", "1M")
	require.NoError(t, err)

	assert.Empty(t, data.Overlays)
	assert.Nil(t, data.RSI)
	assert.Nil(t, data.MACD)
	assert.Len(t, data.OBV, 10)
}
