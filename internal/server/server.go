package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/clients/agent"
	"github.com/vnfinlab/vnquant/internal/modules/charts"
	"github.com/vnfinlab/vnquant/internal/modules/fibonacci"
	"github.com/vnfinlab/vnquant/internal/modules/fundamentals"
	"github.com/vnfinlab/vnquant/internal/modules/indicators"
	"github.com/vnfinlab/vnquant/internal/modules/marketdata"
	"github.com/vnfinlab/vnquant/internal/modules/optimization"
	"github.com/vnfinlab/vnquant/internal/modules/risk"
	"github.com/vnfinlab/vnquant/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	MarketData  *marketdata.Service
	MarketHours *scheduler.MarketHoursService
	Agent       *agent.Client

	IndicatorHandlers    *indicators.Handlers
	FibonacciHandlers    *fibonacci.Handlers
	FundamentalsHandlers *fundamentals.Handlers
	RiskHandlers         *risk.Handlers
	OptimizationHandlers *optimization.Handlers
	ChartHandlers        *charts.Handlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Agent round trips can take minutes; the per-request timeout has
	// to accommodate the slowest route.
	s.router.Use(middleware.Timeout(180 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
			r.Get("/markets", s.handleMarketStatus)
		})

		r.Get("/symbols", s.handleListSymbols)

		r.Get("/indicators/{symbol}", s.cfg.IndicatorHandlers.HandleGetIndicators)
		r.Get("/fibonacci/{symbol}", s.cfg.FibonacciHandlers.HandleGetFibonacci)

		r.Route("/fundamentals/{ticker}", func(r chi.Router) {
			r.Get("/dupont", s.cfg.FundamentalsHandlers.HandleGetDuPont)
			r.Get("/capital-employed", s.cfg.FundamentalsHandlers.HandleGetCapitalEmployed)
			r.Get("/tax-rate", s.cfg.FundamentalsHandlers.HandleGetTaxRate)
		})

		r.Route("/risk/{symbol}", func(r chi.Router) {
			r.Get("/beta", s.cfg.RiskHandlers.HandleGetBeta)
			r.Get("/wacc", s.cfg.RiskHandlers.HandleGetWACC)
		})

		r.Post("/portfolio/optimize", s.cfg.OptimizationHandlers.HandleOptimize)

		r.Get("/charts/{symbol}", s.cfg.ChartHandlers.HandleGetChartData)

		r.Post("/agent/query", s.handleAgentQuery)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
