package indicators

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// DefaultLookbackBars is the daily window used when the caller does not
// specify one.
const DefaultLookbackBars = 250

// PriceSource provides daily history for indicator computation.
type PriceSource interface {
	GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error)
}

// Handlers contains HTTP handlers for the technical indicator API
type Handlers struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewHandlers creates a new indicators handlers instance
func NewHandlers(prices PriceSource, log zerolog.Logger) *Handlers {
	return &Handlers{
		prices: prices,
		log:    log.With().Str("handler", "indicators").Logger(),
	}
}

// IndicatorResponse bundles the four indicator series for one symbol,
// aligned 1:1 with the returned dates.
type IndicatorResponse struct {
	Symbol    string           `json:"symbol"`
	Dates     []string         `json:"dates"`
	Close     []float64        `json:"close"`
	RSI       Series           `json:"rsi"`
	MACD      *MACDResult      `json:"macd"`
	Bollinger *BollingerResult `json:"bollinger"`
	OBV       []float64        `json:"obv"`
}

// HandleGetIndicators computes RSI, MACD, Bollinger Bands and OBV over
// recent daily history.
// GET /api/indicators/{symbol}?bars=N&rsi_period=N
func (h *Handlers) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	bars := queryInt(r, "bars", DefaultLookbackBars)
	rsiPeriod := queryInt(r, "rsi_period", DefaultRSIPeriod)
	if bars <= 0 || rsiPeriod <= 0 {
		http.Error(w, "bars and rsi_period must be positive", http.StatusBadRequest)
		return
	}

	series, err := h.prices.GetDailyHistory(symbol, bars)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load history")
		http.Error(w, "Failed to load price history", http.StatusInternalServerError)
		return
	}

	closes := series.Closes()
	resp := IndicatorResponse{
		Symbol: symbol,
		Dates:  make([]string, series.Len()),
		Close:  closes,
	}
	for i, b := range series.Bars {
		resp.Dates[i] = b.Date.Format("2006-01-02")
	}

	// RSI drives the minimum data requirement for the endpoint; the
	// remaining indicators degrade to null panes on short windows.
	rsi, err := RSI(closes, rsiPeriod)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Indicator computation rejected")
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}
	resp.RSI = rsi

	if macd, err := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal); err == nil {
		resp.MACD = macd
	}
	if bb, err := Bollinger(closes, DefaultBollingerPeriod, DefaultBollingerStdDev); err == nil {
		resp.Bollinger = bb
	}
	if obv, err := OBV(closes, series.Volumes()); err == nil {
		resp.OBV = obv
	}

	h.writeJSON(w, resp)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
