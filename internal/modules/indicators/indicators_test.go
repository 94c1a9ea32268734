package indicators

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfinlab/vnquant/internal/domain"
)

func TestRSIBounds(t *testing.T) {
	closes := []float64{44, 44.5, 43.8, 44.2, 44.9, 45.1, 44.7, 45.3, 45.9, 45.5,
		46.1, 46.8, 46.2, 46.9, 47.5, 47.1, 47.8, 48.2, 47.9, 48.5}

	rsi, err := RSI(closes, 14)
	require.NoError(t, err)
	require.Len(t, rsi, len(closes))

	for i, v := range rsi {
		if i < 14 {
			assert.True(t, math.IsNaN(v), "bar %d should be warm-up NaN", i)
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0, "bar %d", i)
		assert.LessOrEqual(t, v, 100.0, "bar %d", i)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi, err := RSI(closes, 14)
	require.NoError(t, err)

	// Strictly rising prices mean zero losses, so RSI pins at 100.
	for i := 14; i < len(rsi); i++ {
		assert.InDelta(t, 100.0, rsi[i], 1e-12)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI([]float64{100, 101, 102}, 14)

	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 3, insufficient.Observed)
	assert.Equal(t, 15, insufficient.Required)
}

func TestRSIRejectsNonPositivePrices(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	closes[5] = -1

	_, err := RSI(closes, 14)
	var degenerate *domain.DegenerateInputError
	assert.True(t, errors.As(err, &degenerate))
}

func TestMACDHistogramIdentity(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	res, err := MACD(closes, 12, 26, 9)
	require.NoError(t, err)
	require.Len(t, res.Histogram, len(closes))

	for i := range closes {
		assert.InDelta(t, res.MACD[i]-res.Signal[i], res.Histogram[i], 1e-9, "bar %d", i)
	}
}

func TestMACDInsufficientData(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}

	_, err := MACD(closes, 12, 26, 9)
	var insufficient *domain.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 35, insufficient.Required)
}

func TestBollingerOrdering(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + 5*math.Cos(float64(i)/3)
	}

	res, err := Bollinger(closes, 20, 2.0)
	require.NoError(t, err)

	for i := 19; i < len(closes); i++ {
		assert.LessOrEqual(t, res.Lower[i], res.Middle[i], "bar %d", i)
		assert.LessOrEqual(t, res.Middle[i], res.Upper[i], "bar %d", i)
	}
	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(res.Middle[i]), "bar %d should be warm-up NaN", i)
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}

	res, err := Bollinger(closes, 20, 2.0)
	require.NoError(t, err)

	// Zero variance collapses all three bands onto the mean.
	assert.InDelta(t, 50.0, res.Middle[24], 1e-12)
	assert.InDelta(t, 50.0, res.Upper[24], 1e-12)
	assert.InDelta(t, 50.0, res.Lower[24], 1e-12)
}

func TestOBVDirectionalResponse(t *testing.T) {
	closes := []float64{10, 12, 9}
	volumes := []float64{100, 50, 80}

	obv, err := OBV(closes, volumes)
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 150, 70}, obv)
}

func TestOBVFlatClose(t *testing.T) {
	obv, err := OBV([]float64{10, 10, 11}, []float64{100, 200, 50})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100, 150}, obv)
}

func TestOBVLengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = OBV([]float64{1, 2, 3}, []float64{100, 200})
	})
}

func TestOBVInsufficientData(t *testing.T) {
	_, err := OBV([]float64{10}, []float64{100})
	var insufficient *domain.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}
