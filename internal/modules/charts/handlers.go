package charts

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the chart data API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new charts handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetChartData returns the full chart payload for a symbol.
// GET /api/charts/{symbol}?range=3M
func (h *Handlers) HandleGetChartData(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	dateRange := r.URL.Query().Get("range")

	data, err := h.service.GetChartData(symbol, dateRange)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to assemble chart data")
		http.Error(w, "Failed to assemble chart data", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, data)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
