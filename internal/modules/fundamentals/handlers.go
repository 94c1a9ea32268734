package fundamentals

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/domain"
)

// StatementSource provides cached financial statements.
type StatementSource interface {
	GetStatementTable(ticker string, st domain.StatementType, period domain.Period) (domain.StatementTable, error)
}

// Handlers contains HTTP handlers for the fundamentals API
type Handlers struct {
	service    *Service
	statements StatementSource
	log        zerolog.Logger
}

// NewHandlers creates a new fundamentals handlers instance
func NewHandlers(service *Service, statements StatementSource, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:    service,
		statements: statements,
		log:        log.With().Str("handler", "fundamentals").Logger(),
	}
}

// HandleGetDuPont returns the per-year 3-factor ROE decomposition.
// GET /api/fundamentals/{ticker}/dupont
func (h *Handlers) HandleGetDuPont(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	income, err := h.statements.GetStatementTable(ticker, domain.StatementIncome, domain.PeriodYear)
	if err != nil {
		h.storageError(w, err, ticker)
		return
	}
	balance, err := h.statements.GetStatementTable(ticker, domain.StatementBalance, domain.PeriodYear)
	if err != nil {
		h.storageError(w, err, ticker)
		return
	}

	records, err := h.service.DuPont(income, balance)
	if err != nil {
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, records)
}

// HandleGetCapitalEmployed returns per-year capital employed and its
// composition.
// GET /api/fundamentals/{ticker}/capital-employed
func (h *Handlers) HandleGetCapitalEmployed(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	balance, err := h.statements.GetStatementTable(ticker, domain.StatementBalance, domain.PeriodYear)
	if err != nil {
		h.storageError(w, err, ticker)
		return
	}

	records, err := h.service.CapitalEmployed(balance)
	if err != nil {
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, records)
}

// HandleGetTaxRate returns per-year effective tax rates.
// GET /api/fundamentals/{ticker}/tax-rate
func (h *Handlers) HandleGetTaxRate(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)

	income, err := h.statements.GetStatementTable(ticker, domain.StatementIncome, domain.PeriodYear)
	if err != nil {
		h.storageError(w, err, ticker)
		return
	}
	cashFlow, err := h.statements.GetStatementTable(ticker, domain.StatementCashFlow, domain.PeriodYear)
	if err != nil {
		h.storageError(w, err, ticker)
		return
	}

	records, err := h.service.EffectiveTaxRate(income, cashFlow)
	if err != nil {
		http.Error(w, err.Error(), domain.ErrorStatus(err))
		return
	}

	h.writeJSON(w, records)
}

func (h *Handlers) storageError(w http.ResponseWriter, err error, ticker string) {
	h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load statements")
	http.Error(w, "Failed to load statements", http.StatusInternalServerError)
}

func tickerParam(r *http.Request) string {
	return strings.ToUpper(chi.URLParam(r, "ticker"))
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
