package risk

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// Handlers contains HTTP handlers for the risk API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new risk handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetBeta estimates beta against the market index.
// GET /api/risk/{symbol}/beta?bars=N
func (h *Handlers) HandleGetBeta(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	bars := 0
	if raw := r.URL.Query().Get("bars"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "bars must be a positive integer", http.StatusBadRequest)
			return
		}
		bars = parsed
	}

	result, err := h.service.BetaFor(symbol, bars)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Beta estimation failed")
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, result)
}

// HandleGetWACC derives and evaluates the weighted average cost of
// capital for a ticker.
// GET /api/risk/{symbol}/wacc?bars=N
func (h *Handlers) HandleGetWACC(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	bars := 0
	if raw := r.URL.Query().Get("bars"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "bars must be a positive integer", http.StatusBadRequest)
			return
		}
		bars = parsed
	}

	result, err := h.service.WACCFor(symbol, bars)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("WACC derivation failed")
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, result)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
