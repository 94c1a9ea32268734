package indicators

import (
	"math"
	"strconv"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// Series is a float series whose NaN warm-up values marshal as JSON
// null, since encoding/json rejects NaN outright.
type Series []float64

// MarshalJSON implements json.Marshaler.
func (s Series) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(s)*8+2)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) {
			buf = append(buf, "null"...)
		} else {
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

// Default indicator parameters, matching the dashboard's chart defaults.
const (
	DefaultRSIPeriod       = 14
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// RSI computes the Relative Strength Index over closing prices.
//
// Per-bar changes are split into gains and losses and smoothed with a
// recursive EMA using alpha = 1/period, seeded by the first change (not
// SMA-seeded). RSI = 100 - 100/(1 + avgGain/avgLoss). The first `period`
// values are NaN warm-up.
//
// Requires at least period+1 bars and strictly positive prices.
func RSI(closes []float64, period int) (Series, error) {
	if period <= 0 {
		panic("indicators: RSI period must be positive")
	}
	if len(closes) < period+1 {
		return nil, &domain.InsufficientDataError{Observed: len(closes), Required: period + 1, Context: "RSI"}
	}
	if err := requirePositive(closes, "RSI"); err != nil {
		return nil, err
	}

	alpha := 1.0 / float64(period)
	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else if change < 0 {
			loss = -change
		}

		if i == 1 {
			avgGain = gain
			avgLoss = loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		if i >= period {
			if avgLoss == 0 {
				out[i] = 100
			} else {
				rs := avgGain / avgLoss
				out[i] = 100 - 100/(1+rs)
			}
		}
	}

	return out, nil
}

// MACDResult holds the three MACD output series, aligned 1:1 with the
// input closes. Histogram = MACD - Signal at every bar.
type MACDResult struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// MACD computes the Moving Average Convergence Divergence:
// EMA(close, fast) - EMA(close, slow), with a signal line that is the
// EMA of the MACD line. EMAs use the conventional alpha = 2/(n+1),
// seeded with the first value.
//
// Requires at least slow+signal bars.
func MACD(closes []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		panic("indicators: MACD periods must be positive")
	}
	if len(closes) < slow+signal {
		return nil, &domain.InsufficientDataError{Observed: len(closes), Required: slow + signal, Context: "MACD"}
	}
	if err := requirePositive(closes, "MACD"); err != nil {
		return nil, err
	}

	fastEMA := ema(closes, fast)
	slowEMA := ema(closes, slow)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := ema(macdLine, signal)
	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return &MACDResult{MACD: macdLine, Signal: signalLine, Histogram: histogram}, nil
}

// BollingerResult holds the three band series. The first period-1 values
// of each band are NaN warm-up.
type BollingerResult struct {
	Middle Series `json:"middle"`
	Upper  Series `json:"upper"`
	Lower  Series `json:"lower"`
}

// Bollinger computes Bollinger Bands: a rolling simple moving average
// with upper/lower bands at +/- stdDevMult sample standard deviations
// over the same window.
//
// Requires at least period bars.
func Bollinger(closes []float64, period int, stdDevMult float64) (*BollingerResult, error) {
	if period <= 1 {
		panic("indicators: Bollinger period must be greater than 1")
	}
	if len(closes) < period {
		return nil, &domain.InsufficientDataError{Observed: len(closes), Required: period, Context: "Bollinger Bands"}
	}
	if err := requirePositive(closes, "Bollinger Bands"); err != nil {
		return nil, err
	}

	n := len(closes)
	res := &BollingerResult{
		Middle: make([]float64, n),
		Upper:  make([]float64, n),
		Lower:  make([]float64, n),
	}
	for i := 0; i < period-1; i++ {
		res.Middle[i] = math.NaN()
		res.Upper[i] = math.NaN()
		res.Lower[i] = math.NaN()
	}

	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]

		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var sq float64
		for _, v := range window {
			d := v - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(period-1))

		res.Middle[i] = mean
		res.Upper[i] = mean + stdDevMult*std
		res.Lower[i] = mean - stdDevMult*std
	}

	return res, nil
}

// OBV computes On-Balance Volume: a running sum seeded with the first
// bar's volume, adding volume on up-closes and subtracting on
// down-closes. Mismatched close/volume lengths are a caller bug and
// panic; fewer than two bars is a routine insufficiency.
func OBV(closes, volumes []float64) ([]float64, error) {
	if len(closes) != len(volumes) {
		panic("indicators: OBV close and volume series must have equal length")
	}
	if len(closes) < 2 {
		return nil, &domain.InsufficientDataError{Observed: len(closes), Required: 2, Context: "OBV"}
	}

	out := make([]float64, len(closes))
	out[0] = volumes[0]
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}

	return out, nil
}

// ema computes a recursive exponential moving average with
// alpha = 2/(period+1), seeded with the first value.
func ema(values []float64, period int) []float64 {
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func requirePositive(prices []float64, context string) error {
	for _, p := range prices {
		if p <= 0 {
			return &domain.DegenerateInputError{Reason: context + " requires strictly positive prices"}
		}
	}
	return nil
}
