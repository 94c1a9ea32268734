package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vnfinlab/vnquant/internal/clients/agent"
	"github.com/vnfinlab/vnquant/internal/clients/vnmarket"
	"github.com/vnfinlab/vnquant/internal/config"
	"github.com/vnfinlab/vnquant/internal/database"
	"github.com/vnfinlab/vnquant/internal/modules/charts"
	"github.com/vnfinlab/vnquant/internal/modules/fibonacci"
	"github.com/vnfinlab/vnquant/internal/modules/fundamentals"
	"github.com/vnfinlab/vnquant/internal/modules/indicators"
	"github.com/vnfinlab/vnquant/internal/modules/marketdata"
	"github.com/vnfinlab/vnquant/internal/modules/optimization"
	"github.com/vnfinlab/vnquant/internal/modules/risk"
	"github.com/vnfinlab/vnquant/internal/scheduler"
	"github.com/vnfinlab/vnquant/internal/server"
	"github.com/vnfinlab/vnquant/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; fall back to a default one.
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting vnquant analytics service")

	// Central cache database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Market data: provider client, central repository, per-symbol
	// history archives, and the cache-first service over all three.
	provider := vnmarket.NewClient(cfg.MarketDataURL, log)
	repo := marketdata.NewRepository(db)
	historyDB := marketdata.NewHistoryDB(cfg.HistoryDir, log)
	marketData := marketdata.NewService(provider, repo, historyDB, log)

	// Analytics services
	normalizer, err := fundamentals.NewNormalizer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load statement field synonyms")
	}
	fundamentalsService := fundamentals.NewService(normalizer, log)

	riskService := risk.NewService(marketData, marketData, fundamentalsService, risk.Config{
		MarketSymbol:      cfg.MarketSymbol,
		RiskFreeRate:      cfg.RiskFreeRate,
		MarketRiskPremium: cfg.MarketRiskPremium,
		CostOfDebt:        cfg.CostOfDebt,
	}, log)

	optimizationConfig := optimization.DefaultConfig()
	optimizationConfig.AnnualizationFactor = cfg.AnnualizationFactor
	optimizationConfig.RiskFreeRate = cfg.RiskFreeRate

	var solver optimization.Solver
	if cfg.UseRemoteSolver {
		solver = optimization.NewRemoteSolver(cfg.SolverURL, log)
	}
	optimizationService := optimization.NewService(solver, optimizationConfig, log)

	chartService := charts.NewService(marketData, log)

	// Scheduler and background jobs
	marketHours := scheduler.NewMarketHoursService(log)
	sched := scheduler.New(log)

	dataSync := scheduler.NewDataSyncJob(scheduler.DataSyncConfig{
		Log:          log,
		MarketData:   marketData,
		MarketHours:  marketHours,
		MarketSymbol: cfg.MarketSymbol,
	})
	// Nightly, an hour after the UPCOM close (ICT is UTC+7).
	if err := sched.AddJob("0 0 16 * * MON-FRI", dataSync); err != nil {
		log.Fatal().Err(err).Msg("Failed to register data sync job")
	}

	healthCheck := scheduler.NewHealthCheckJob(scheduler.HealthCheckConfig{
		Log:        log,
		CacheDB:    db,
		HistoryDir: cfg.HistoryDir,
	})
	if err := sched.AddJob("@every 6h", healthCheck); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DevMode: cfg.DevMode,

		MarketData:  marketData,
		MarketHours: marketHours,
		Agent:       agent.NewClient(cfg.AgentURL, log),

		IndicatorHandlers:    indicators.NewHandlers(marketData, log),
		FibonacciHandlers:    fibonacci.NewHandlers(marketData, log),
		FundamentalsHandlers: fundamentals.NewHandlers(fundamentalsService, marketData, log),
		RiskHandlers:         risk.NewHandlers(riskService, log),
		OptimizationHandlers: optimization.NewHandlers(optimizationService, marketData, log),
		ChartHandlers:        charts.NewHandlers(chartService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
