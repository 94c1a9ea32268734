package charts

import (
	"strconv"
	"strings"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
	"github.com/vnfinlab/vnquant/internal/modules/fibonacci"
	"github.com/vnfinlab/vnquant/internal/modules/indicators"
)

// Moving average periods drawn as price overlays.
const (
	SMAShortPeriod = 20
	SMALongPeriod  = 50
	EMATrendPeriod = 200
	ATRPeriod      = 14
)

// PriceSource provides daily history for charting.
type PriceSource interface {
	GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error)
}

// Service assembles chart-ready payloads: the OHLCV window, moving
// average and volatility overlays, oscillator panes and the most
// recent swing's retracement grid.
type Service struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewService creates a new charts service
func NewService(prices PriceSource, log zerolog.Logger) *Service {
	return &Service{
		prices: prices,
		log:    log.With().Str("component", "charts").Logger(),
	}
}

// ChartData is one symbol's chart payload. Overlay and oscillator
// arrays are parallel to Dates; warmup positions hold NaN and are
// serialized as null.
type ChartData struct {
	Symbol string    `json:"symbol"`
	Dates  []string  `json:"dates"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`

	Overlays map[string][]float64 `json:"overlays"`

	RSI       indicators.Series           `json:"rsi"`
	MACD      *indicators.MACDResult      `json:"macd"`
	Bollinger *indicators.BollingerResult `json:"bollinger"`
	OBV       []float64                   `json:"obv"`

	Fibonacci *fibonacci.SwingAnalysis `json:"fibonacci,omitempty"`
}

// GetChartData builds the chart payload for a symbol over a date range
// such as "3M", "1Y" or "all".
func (s *Service) GetChartData(symbol, dateRange string) (*ChartData, error) {
	series, err := s.prices.GetDailyHistory(symbol, rangeToBars(dateRange))
	if err != nil {
		return nil, err
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	data := &ChartData{
		Symbol:   symbol,
		Dates:    make([]string, series.Len()),
		High:     highs,
		Low:      lows,
		Close:    closes,
		Volume:   volumes,
		Open:     make([]float64, series.Len()),
		Overlays: make(map[string][]float64),
	}
	for i, b := range series.Bars {
		data.Dates[i] = b.Date.Format("2006-01-02")
		data.Open[i] = b.Open
	}

	// Trend overlays come straight from talib; warmup slots stay NaN.
	if series.Len() >= SMAShortPeriod {
		data.Overlays["sma_20"] = talib.Sma(closes, SMAShortPeriod)
	}
	if series.Len() >= SMALongPeriod {
		data.Overlays["sma_50"] = talib.Sma(closes, SMALongPeriod)
	}
	if series.Len() >= EMATrendPeriod {
		data.Overlays["ema_200"] = talib.Ema(closes, EMATrendPeriod)
	}
	if series.Len() > ATRPeriod {
		data.Overlays["atr_14"] = talib.Atr(highs, lows, closes, ATRPeriod)
	}

	// Oscillator panes reuse the analytics indicators so the chart
	// shows exactly what the API reports. Short windows simply omit
	// the pane.
	if rsi, err := indicators.RSI(closes, indicators.DefaultRSIPeriod); err == nil {
		data.RSI = rsi
	}
	if macd, err := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal); err == nil {
		data.MACD = macd
	}
	if bb, err := indicators.Bollinger(closes, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerStdDev); err == nil {
		data.Bollinger = bb
	}
	if obv, err := indicators.OBV(closes, volumes); err == nil {
		data.OBV = obv
	}

	data.Fibonacci = fibonacci.RecentSwing(series, series.Len(), fibonacci.DefaultSwingOrder, false)

	s.log.Debug().Str("symbol", symbol).Str("range", dateRange).Int("bars", series.Len()).Msg("Chart data assembled")
	return data, nil
}

// rangeToBars converts a range token into a daily bar budget. Vietnam
// exchanges trade about 250 sessions a year. Unknown or "all" tokens
// fetch the full archive.
func rangeToBars(dateRange string) int {
	const allBars = 100000

	dateRange = strings.ToUpper(strings.TrimSpace(dateRange))
	if dateRange == "" || dateRange == "ALL" {
		return allBars
	}

	unit := dateRange[len(dateRange)-1]
	n, err := strconv.Atoi(dateRange[:len(dateRange)-1])
	if err != nil || n <= 0 {
		return allBars
	}

	switch unit {
	case 'M':
		return n * 21
	case 'Y':
		return n * 250
	default:
		return allBars
	}
}
