package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the central cache database holding financial statements and
// the symbol universe. Price history lives in per-symbol archive files
// managed by the marketdata module.
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode for concurrent readers during sync
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the cache schema when missing.
func (db *DB) Migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			symbol   TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			exchange TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS statement_values (
			ticker      TEXT NOT NULL,
			type        TEXT NOT NULL,
			period      TEXT NOT NULL,
			year        INTEGER NOT NULL,
			quarter     INTEGER NOT NULL DEFAULT 0,
			column_name TEXT NOT NULL,
			value       REAL NOT NULL,
			PRIMARY KEY (ticker, type, period, year, quarter, column_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statement_values_lookup
			ON statement_values (ticker, type, period)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}
