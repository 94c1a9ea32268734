package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/modules/marketdata"
)

// DataSyncJob refreshes the symbol universe, per-symbol price archives
// and cached statements from the market data provider. Scheduled after
// the HOSE close so each run captures that day's session.
type DataSyncJob struct {
	log          zerolog.Logger
	marketData   *marketdata.Service
	marketHours  *MarketHoursService
	marketSymbol string

	running sync.Mutex
}

// DataSyncConfig holds configuration for the data sync job
type DataSyncConfig struct {
	Log          zerolog.Logger
	MarketData   *marketdata.Service
	MarketHours  *MarketHoursService
	MarketSymbol string
}

// NewDataSyncJob creates a new data sync job
func NewDataSyncJob(cfg DataSyncConfig) *DataSyncJob {
	return &DataSyncJob{
		log:          cfg.Log.With().Str("job", "data_sync").Logger(),
		marketData:   cfg.MarketData,
		marketHours:  cfg.MarketHours,
		marketSymbol: cfg.MarketSymbol,
	}
}

// Name returns the job name
func (j *DataSyncJob) Name() string {
	return "data_sync"
}

// Run executes the sync
func (j *DataSyncJob) Run() error {
	if !j.running.TryLock() {
		j.log.Warn().Msg("Data sync already running, skipping")
		return nil
	}
	defer j.running.Unlock()

	if !j.marketHours.IsTradingDay("HOSE", time.Now()) {
		j.log.Debug().Msg("Not a trading day, skipping data sync")
		return nil
	}

	j.log.Info().Msg("Starting data sync")
	startTime := time.Now()

	// Universe refresh failures are non-fatal; yesterday's listing is
	// still usable for the price pass.
	if err := j.marketData.RefreshSymbols(); err != nil {
		j.log.Error().Err(err).Msg("Symbol universe refresh failed")
	}

	j.syncPrices()
	j.syncStatements()

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Data sync completed")

	return nil
}

// syncPrices refreshes the market index archive and then every listed
// symbol. Per-symbol failures are logged and skipped so one delisted
// ticker cannot stall the run.
func (j *DataSyncJob) syncPrices() {
	if err := j.marketData.RefreshHistory(j.marketSymbol); err != nil {
		j.log.Error().Err(err).Str("symbol", j.marketSymbol).Msg("Index history refresh failed")
	}

	symbols, err := j.marketData.ListSymbols()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list symbols for price sync")
		return
	}

	failed := 0
	for _, s := range symbols {
		if err := j.marketData.RefreshHistory(s.Symbol); err != nil {
			failed++
			j.log.Warn().Err(err).Str("symbol", s.Symbol).Msg("History refresh failed")
		}
	}

	j.log.Info().
		Int("symbols", len(symbols)).
		Int("failed", failed).
		Msg("Price sync completed")
}

// syncStatements re-fetches statements for every ticker that has been
// requested before. Statements only change quarterly, but providers
// restate columns often enough that a nightly refresh is worth it.
func (j *DataSyncJob) syncStatements() {
	tickers, err := j.marketData.ListStatementTickers()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list tickers for statement sync")
		return
	}

	failed := 0
	for _, ticker := range tickers {
		if err := j.marketData.RefreshStatements(ticker); err != nil {
			failed++
			j.log.Warn().Err(err).Str("ticker", ticker).Msg("Statement refresh failed")
		}
	}

	j.log.Info().
		Int("tickers", len(tickers)).
		Int("failed", failed).
		Msg("Statement sync completed")
}
