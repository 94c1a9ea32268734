package optimization

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// DefaultHistoryBars is the daily window fetched per symbol when the
// request does not specify one.
const DefaultHistoryBars = 500

// PriceSource provides daily history for estimation.
type PriceSource interface {
	GetDailyHistory(symbol string, limit int) (domain.PriceSeries, error)
}

// Handlers contains HTTP handlers for the portfolio optimization API
type Handlers struct {
	service *Service
	prices  PriceSource
	log     zerolog.Logger
}

// NewHandlers creates a new optimization handlers instance
func NewHandlers(service *Service, prices PriceSource, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		prices:  prices,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest selects the universe and objective for one run.
type OptimizeRequest struct {
	Symbols   []string `json:"symbols"`
	Objective string   `json:"objective"`
	Bars      int      `json:"bars,omitempty"`
}

// HandleOptimize runs one optimization over recent daily history.
// POST /api/portfolio/optimize
func (h *Handlers) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	objective, ok := parseObjective(req.Objective)
	if !ok {
		http.Error(w, "Unknown objective: "+req.Objective, http.StatusBadRequest)
		return
	}
	if len(req.Symbols) < 2 {
		http.Error(w, "At least two symbols are required", http.StatusBadRequest)
		return
	}
	bars := req.Bars
	if bars <= 0 {
		bars = DefaultHistoryBars
	}

	prices := make(map[string]domain.PriceSeries, len(req.Symbols))
	for _, raw := range req.Symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}
		series, err := h.prices.GetDailyHistory(symbol, bars)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load history")
			http.Error(w, "Failed to load price history for "+symbol, http.StatusInternalServerError)
			return
		}
		prices[symbol] = series
	}

	result, err := h.service.Optimize(prices, objective)
	if err != nil {
		h.log.Warn().Err(err).Str("objective", string(objective)).Msg("Optimization rejected")
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, result)
}

func parseObjective(raw string) (Objective, bool) {
	switch Objective(strings.ToLower(strings.TrimSpace(raw))) {
	case ObjectiveMaxSharpe:
		return ObjectiveMaxSharpe, true
	case ObjectiveMinVolatility:
		return ObjectiveMinVolatility, true
	case ObjectiveMaxUtility:
		return ObjectiveMaxUtility, true
	default:
		return "", false
	}
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
