package scheduler

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/vnfinlab/vnquant/internal/database"
)

// HealthCheckJob performs database integrity checks and auto-recovery.
// The central cache database is critical; a corrupted per-symbol
// archive is simply deleted and rebuilt by the next sync.
type HealthCheckJob struct {
	log        zerolog.Logger
	cacheDB    *database.DB
	historyDir string

	running sync.Mutex
}

// HealthCheckConfig holds configuration for the health check job
type HealthCheckConfig struct {
	Log        zerolog.Logger
	CacheDB    *database.DB
	HistoryDir string
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(cfg HealthCheckConfig) *HealthCheckJob {
	return &HealthCheckJob{
		log:        cfg.Log.With().Str("job", "health_check").Logger(),
		cacheDB:    cfg.CacheDB,
		historyDir: cfg.HistoryDir,
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run executes the health check
func (j *HealthCheckJob) Run() error {
	if !j.running.TryLock() {
		j.log.Warn().Msg("Health check already running, skipping")
		return nil
	}
	defer j.running.Unlock()

	j.log.Info().Msg("Starting database health check")
	startTime := time.Now()

	if err := j.checkCacheDatabase(); err != nil {
		j.log.Error().Err(err).Msg("Cache database integrity check failed")
		return err
	}

	j.checkHistoryDatabases()

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Health check completed successfully")

	return nil
}

// checkCacheDatabase verifies the central cache. Corruption here cannot
// be auto-recovered because statements are fetched on demand.
func (j *HealthCheckJob) checkCacheDatabase() error {
	if j.cacheDB == nil {
		j.log.Warn().Msg("Cache database not initialized, skipping")
		return nil
	}

	if err := checkDatabaseIntegrity(j.cacheDB.Conn()); err != nil {
		return fmt.Errorf("cache database is corrupted: %w", err)
	}

	// Passive checkpoint keeps the WAL from growing unbounded between
	// syncs.
	var mode, busy, walFrames, checkpointed int
	if err := j.cacheDB.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&mode, &busy, &walFrames, &checkpointed); err != nil {
		j.log.Warn().Err(err).Msg("Failed to checkpoint WAL")
	} else if walFrames > 1000 {
		j.log.Warn().
			Int("wal_frames", walFrames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large")
	}

	j.log.Debug().Msg("Cache database integrity OK")
	return nil
}

// checkHistoryDatabases verifies per-symbol archives, deleting corrupt
// ones so the next sync rebuilds them from the provider.
func (j *HealthCheckJob) checkHistoryDatabases() {
	entries, err := os.ReadDir(j.historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			j.log.Debug().Msg("History directory does not exist, skipping")
			return
		}
		j.log.Error().Err(err).Msg("Failed to read history directory")
		return
	}

	corrupted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}

		dbPath := filepath.Join(j.historyDir, entry.Name())
		symbol := strings.TrimSuffix(entry.Name(), ".db")

		if err := j.checkHistoryDatabase(dbPath); err != nil {
			corrupted++
			j.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Msg("History archive corrupted, deleting for rebuild")

			if err := os.Remove(dbPath); err != nil {
				j.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete corrupted archive")
			}
		}
	}

	if corrupted > 0 {
		j.log.Warn().Int("corrupted", corrupted).Msg("History archive corruption detected and recovered")
	}
}

func (j *HealthCheckJob) checkHistoryDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer db.Close()

	return checkDatabaseIntegrity(db)
}

// checkDatabaseIntegrity runs SQLite's PRAGMA integrity_check
func checkDatabaseIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}
