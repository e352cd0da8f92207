package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"suitedriver/internal/driver"
	"suitedriver/internal/sweep"
)

// maxStoredOutput caps per-invocation output kept in the database.
const maxStoredOutput = 64 * 1024

// DB manages the SQLite database holding run history
type DB struct {
	db *sql.DB
}

// Open creates a database connection and initializes the schema
func Open(dbPath string) (*DB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Execute a simple query instead of Ping() so the database file is
	// created if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode: multiple readers, one writer
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &DB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}

	// Clear the deferred error handler since we succeeded
	err = nil
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		total INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS invocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		file TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error_message TEXT,
		output TEXT
	);

	CREATE TABLE IF NOT EXISTS sweeps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		path TEXT NOT NULL,
		action TEXT NOT NULL,
		size INTEGER NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_operation ON runs(operation);
	CREATE INDEX IF NOT EXISTS idx_invocations_run ON invocations(run_id);
	CREATE INDEX IF NOT EXISTS idx_invocations_exit ON invocations(exit_code);
	CREATE INDEX IF NOT EXISTS idx_sweeps_run ON sweeps(run_id);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordTestRun stores a test run and its per-file invocations atomically
func (d *DB) RecordTestRun(report *driver.Report) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, operation, started_at, elapsed_ms, total, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, "test", report.Started, report.Elapsed.Milliseconds(),
		len(report.Invocations), report.Failed(),
	)
	if err != nil {
		return err
	}

	for i, inv := range report.Invocations {
		errMsg := ""
		if inv.Err != nil {
			errMsg = inv.Err.Error()
		}
		output := inv.Output
		if len(output) > maxStoredOutput {
			output = output[:maxStoredOutput]
		}
		_, err = tx.Exec(
			`INSERT INTO invocations (run_id, seq, file, exit_code, duration_ms, error_message, output)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, i, inv.File, inv.ExitCode, inv.Duration.Milliseconds(), errMsg, output,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecordClean stores a clean run: the sweep result plus the output-dir
// removal outcome.
func (d *DB) RecordClean(runID string, started time.Time, res sweep.Result, outputDir string, outputDirErr error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, operation, started_at, elapsed_ms, total, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, "clean", started, time.Since(started).Milliseconds(),
		len(res.Removed)+len(res.Failures), len(res.Failures),
	)
	if err != nil {
		return err
	}

	for _, entry := range res.Removed {
		_, err = tx.Exec(
			`INSERT INTO sweeps (run_id, path, action, size, error_message) VALUES (?, ?, ?, ?, ?)`,
			runID, entry.Path, "DELETE", entry.Size, "",
		)
		if err != nil {
			return err
		}
	}
	for _, failure := range res.Failures {
		_, err = tx.Exec(
			`INSERT INTO sweeps (run_id, path, action, size, error_message) VALUES (?, ?, ?, ?, ?)`,
			runID, failure.Path, "ERROR", 0, failure.Err.Error(),
		)
		if err != nil {
			return err
		}
	}

	if outputDir != "" {
		action, errMsg := "RMDIR", ""
		if outputDirErr != nil {
			action, errMsg = "ERROR", outputDirErr.Error()
		}
		_, err = tx.Exec(
			`INSERT INTO sweeps (run_id, path, action, size, error_message) VALUES (?, ?, ?, ?, ?)`,
			runID, outputDir, action, 0, errMsg,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
