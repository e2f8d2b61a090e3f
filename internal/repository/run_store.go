package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"CargoCast/internal/domain/models"
	applogger "CargoCast/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteRunStore persists run bookkeeping and materialized run series in a
// local SQLite database.
type SQLiteRunStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLiteRunStore opens (or creates) the database and runs migrations.
func NewSQLiteRunStore(path string, l *applogger.Logger) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode keeps reads cheap while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteRunStore{db: db, l: l}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if l != nil {
		l.Info("run store opened", applogger.String("path", path))
	}
	return s, nil
}

func (s *SQLiteRunStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			started_at  TEXT,
			finished_at TEXT,
			message     TEXT,
			error       TEXT,
			params      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS run_series (
			run_id       TEXT PRIMARY KEY REFERENCES runs(id),
			payload      BLOB NOT NULL,
			generated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteRunStore) Create(ctx context.Context, run *models.Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, started_at, finished_at, message, error, params)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.CreatedAt, run.StartedAt, run.FinishedAt,
		run.Message, run.Error, string(params),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, created_at, started_at, finished_at, message, error, params
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *SQLiteRunStore) List(ctx context.Context) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, created_at, started_at, finished_at, message, error, params
		 FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Finish moves a run to a terminal (or running) status. For terminal statuses
// the finished timestamp is taken from the message-bearing caller via the
// stored started/finished columns.
func (s *SQLiteRunStore) Finish(ctx context.Context, id string, status models.RunStatus, message string) error {
	now := nowISO()
	var res sql.Result
	var err error
	switch status {
	case models.RunRunning:
		res, err = s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
			string(status), now, id)
	case models.RunFailed:
		res, err = s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
			string(status), now, message, id)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ?, message = ? WHERE id = ?`,
			string(status), now, nullable(message), id)
	}
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

func (s *SQLiteRunStore) SaveSeries(ctx context.Context, runID string, payload []byte, generatedAt string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_series (run_id, payload, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload, generated_at = excluded.generated_at`,
		runID, payload, generatedAt)
	if err != nil {
		return fmt.Errorf("save run series: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) GetSeries(ctx context.Context, runID string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM run_series WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get run series: %w", err)
	}
	return payload, true, nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var status, params string
	if err := row.Scan(&run.ID, &status, &run.CreatedAt, &run.StartedAt,
		&run.FinishedAt, &run.Message, &run.Error, &params); err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	if params != "" && params != "null" {
		var p models.RunParams
		if err := json.Unmarshal([]byte(params), &p); err != nil {
			return nil, fmt.Errorf("unmarshal run params: %w", err)
		}
		run.Params = &p
	}
	return &run, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
