package history

import (
	"database/sql"
	"time"
)

// RunRecord is one recorded clean or test run
type RunRecord struct {
	ID        string
	Operation string
	StartedAt time.Time
	ElapsedMS int64
	Total     int
	Failed    int
}

// InvocationRecord is one per-file interpreter invocation within a run
type InvocationRecord struct {
	RunID        string
	Seq          int
	File         string
	ExitCode     int
	DurationMS   int64
	ErrorMessage string
	Output       string
}

// SweepRecord is one artifact removal (or failure) within a clean run
type SweepRecord struct {
	RunID        string
	Path         string
	Action       string
	Size         int64
	ErrorMessage string
}

// Stats aggregates history over a trailing window
type Stats struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalRuns        int64     `json:"total_runs"`
	FailedRuns       int64     `json:"failed_runs"`
	TotalInvocations int64     `json:"total_invocations"`
	FailedFiles      int64     `json:"failed_files"`
	FilesSwept       int64     `json:"files_swept"`
	BytesFreed       int64     `json:"bytes_freed"`
}

// GetRecentRuns returns the N most recent runs
func (d *DB) GetRecentRuns(limit int) ([]RunRecord, error) {
	query := `
	SELECT id, operation, started_at, elapsed_ms, total, failed
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`
	return d.queryRuns(query, limit)
}

// GetRun returns one run and its invocations in sequence order
func (d *DB) GetRun(id string) (*RunRecord, []InvocationRecord, error) {
	row := d.db.QueryRow(
		`SELECT id, operation, started_at, elapsed_ms, total, failed FROM runs WHERE id = ?`, id)

	var run RunRecord
	if err := row.Scan(&run.ID, &run.Operation, &run.StartedAt, &run.ElapsedMS, &run.Total, &run.Failed); err != nil {
		return nil, nil, err
	}

	invocations, err := d.queryInvocations(
		`SELECT run_id, seq, file, exit_code, duration_ms, error_message, output
		 FROM invocations WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, nil, err
	}
	return &run, invocations, nil
}

// GetFailedInvocations returns the N most recent failing file invocations
func (d *DB) GetFailedInvocations(limit int) ([]InvocationRecord, error) {
	return d.queryInvocations(
		`SELECT i.run_id, i.seq, i.file, i.exit_code, i.duration_ms, i.error_message, i.output
		 FROM invocations i
		 JOIN runs r ON r.id = i.run_id
		 WHERE i.exit_code != 0
		 ORDER BY r.started_at DESC, i.seq
		 LIMIT ?`, limit)
}

// GetSweeps returns the sweep records of the N most recent clean runs
func (d *DB) GetSweeps(limit int) ([]SweepRecord, error) {
	rows, err := d.db.Query(
		`SELECT s.run_id, s.path, s.action, s.size, s.error_message
		 FROM sweeps s
		 JOIN runs r ON r.id = s.run_id
		 WHERE r.id IN (SELECT id FROM runs WHERE operation = 'clean' ORDER BY started_at DESC LIMIT ?)
		 ORDER BY r.started_at DESC, s.id`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SweepRecord
	for rows.Next() {
		var rec SweepRecord
		if err := rows.Scan(&rec.RunID, &rec.Path, &rec.Action, &rec.Size, &rec.ErrorMessage); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetStats aggregates history over the last N days
func (d *DB) GetStats(days int) (*Stats, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	stats := &Stats{StartDate: start, EndDate: end}

	err := d.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN failed > 0 THEN 1 ELSE 0 END), 0)
		 FROM runs WHERE started_at >= ?`, start).
		Scan(&stats.TotalRuns, &stats.FailedRuns)
	if err != nil {
		return nil, err
	}

	err = d.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN i.exit_code != 0 THEN 1 ELSE 0 END), 0)
		 FROM invocations i JOIN runs r ON r.id = i.run_id
		 WHERE r.started_at >= ?`, start).
		Scan(&stats.TotalInvocations, &stats.FailedFiles)
	if err != nil {
		return nil, err
	}

	err = d.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(s.size), 0)
		 FROM sweeps s JOIN runs r ON r.id = s.run_id
		 WHERE s.action = 'DELETE' AND r.started_at >= ?`, start).
		Scan(&stats.FilesSwept, &stats.BytesFreed)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (d *DB) queryRuns(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.StartedAt, &rec.ElapsedMS, &rec.Total, &rec.Failed); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (d *DB) queryInvocations(query string, args ...interface{}) ([]InvocationRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []InvocationRecord
	for rows.Next() {
		var rec InvocationRecord
		var errMsg, output sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.File, &rec.ExitCode, &rec.DurationMS, &errMsg, &output); err != nil {
			return nil, err
		}
		rec.ErrorMessage = errMsg.String
		rec.Output = output.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
