// Package store keeps the run history database: one row per verification
// invocation, written after the report and never read by the evaluator.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"logcontract/internal/logging"
	"logcontract/internal/verify"
)

// Run is one recorded invocation.
type Run struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
	SpecPath         string        `json:"spec_path"`
	LogPath          string        `json:"log_path"`
	OutputPath       string        `json:"output_path,omitempty"`
	Dialect          string        `json:"dialect"`
	Status           verify.Status `json:"status"`
	RuleCount        int           `json:"rule_count"`
	LogLines         int           `json:"log_lines"`
	MissingHard      int           `json:"missing_hard"`
	OrderViolations  int           `json:"order_violations"`
	ImbalancedTokens int           `json:"imbalanced_tokens"`
	Summary          string        `json:"summary"`
	Diagnostics      []string      `json:"diagnostics,omitempty"`
}

// RunFromResult flattens a verification result into a history row.
func RunFromResult(r *verify.Result) Run {
	return Run{
		ID:               r.RunID,
		StartedAt:        r.StartedAt,
		Duration:         r.Duration,
		SpecPath:         r.SpecPath,
		LogPath:          r.LogPath,
		OutputPath:       r.OutputPath,
		Dialect:          string(r.Dialect),
		Status:           r.Status,
		RuleCount:        r.RuleCount,
		LogLines:         r.LogLineCount,
		MissingHard:      r.MissingHardCount(),
		OrderViolations:  r.ViolationCount(),
		ImbalancedTokens: len(r.ImbalancedTokens()),
		Summary:          r.Summary,
		Diagnostics:      r.Diagnostics,
	}
}

// HistoryStore manages the run history database.
type HistoryStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the history database at path.
func Open(path string) (*HistoryStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("history store opened at %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *HistoryStore) Path() string {
	return s.dbPath
}

func (s *HistoryStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		spec_path TEXT NOT NULL,
		log_path TEXT NOT NULL,
		output_path TEXT,
		dialect TEXT,
		status TEXT NOT NULL,
		rule_count INTEGER NOT NULL,
		log_lines INTEGER NOT NULL,
		missing_hard INTEGER NOT NULL,
		order_violations INTEGER NOT NULL,
		imbalanced_tokens INTEGER NOT NULL,
		summary TEXT,
		diagnostics_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores one run. Recording the same id twice replaces the row.
func (s *HistoryStore) RecordRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	diagJSON, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (id, started_at, duration_ns, spec_path, log_path,
			output_path, dialect, status, rule_count, log_lines, missing_hard,
			order_violations, imbalanced_tokens, summary, diagnostics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), int64(run.Duration), run.SpecPath, run.LogPath,
		run.OutputPath, run.Dialect, string(run.Status), run.RuleCount, run.LogLines,
		run.MissingHard, run.OrderViolations, run.ImbalancedTokens, run.Summary, string(diagJSON))
	if err != nil {
		logging.StoreError("failed to record run %s: %v", run.ID, err)
		return fmt.Errorf("failed to record run: %w", err)
	}
	logging.StoreDebug("recorded run %s (%s)", run.ID, run.Status)
	return nil
}

// RecordResult records a verification result.
func (s *HistoryStore) RecordResult(r *verify.Result) error {
	return s.RecordRun(RunFromResult(r))
}

const runColumns = `id, started_at, duration_ns, spec_path, log_path, output_path, dialect,
	status, rule_count, log_lines, missing_hard, order_violations, imbalanced_tokens,
	summary, diagnostics_json`

// ListRuns returns the most recent runs first. A zero limit means no limit;
// an empty status matches every status.
func (s *HistoryStore) ListRuns(limit int, status verify.Status) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run, or nil if the id is unknown.
func (s *HistoryStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CountByStatus returns the number of recorded runs per status.
func (s *HistoryStore) CountByStatus() (map[verify.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	out := make(map[verify.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[verify.Status(status)] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                   Run
		startedAt, durationNs int64
		status                string
		outputPath, dialect   sql.NullString
		summary, diagJSON     sql.NullString
	)
	err := sc.Scan(&run.ID, &startedAt, &durationNs, &run.SpecPath, &run.LogPath,
		&outputPath, &dialect, &status, &run.RuleCount, &run.LogLines, &run.MissingHard,
		&run.OrderViolations, &run.ImbalancedTokens, &summary, &diagJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return run, err
		}
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationNs)
	run.Status = verify.Status(status)
	run.OutputPath = outputPath.String
	run.Dialect = dialect.String
	run.Summary = summary.String
	if diagJSON.Valid && diagJSON.String != "" {
		if err := json.Unmarshal([]byte(diagJSON.String), &run.Diagnostics); err != nil {
			logging.StoreDebug("run %s: bad diagnostics json: %v", run.ID, err)
		}
	}
	return run, nil
}
