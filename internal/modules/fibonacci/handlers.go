package fibonacci

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// DefaultLookbackBars bounds the swing search to roughly half a trading
// year so stale swings do not anchor the grid.
const DefaultLookbackBars = 120

// PriceSource provides daily history for swing detection.
type PriceSource interface {
	GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error)
}

// Handlers contains HTTP handlers for the Fibonacci retracement API
type Handlers struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewHandlers creates a new fibonacci handlers instance
func NewHandlers(prices PriceSource, log zerolog.Logger) *Handlers {
	return &Handlers{
		prices: prices,
		log:    log.With().Str("handler", "fibonacci").Logger(),
	}
}

// HandleGetFibonacci returns the most recent swing's retracement grid.
// GET /api/fibonacci/{symbol}?lookback=N&order=N&extensions=true
func (h *Handlers) HandleGetFibonacci(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	lookback := DefaultLookbackBars
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "lookback must be a positive integer", http.StatusBadRequest)
			return
		}
		lookback = parsed
	}

	order := DefaultSwingOrder
	if raw := r.URL.Query().Get("order"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "order must be a positive integer", http.StatusBadRequest)
			return
		}
		order = parsed
	}

	extensions := r.URL.Query().Get("extensions") == "true"

	series, err := h.prices.GetDailyHistory(symbol, lookback)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load history")
		http.Error(w, "Failed to load price history", http.StatusInternalServerError)
		return
	}

	analysis := RecentSwing(series, lookback, order, extensions)
	if analysis == nil {
		http.Error(w, "No qualifying swing in the lookback window", http.StatusNotFound)
		return
	}

	h.writeJSON(w, analysis)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
