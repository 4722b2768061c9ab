package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotOpen is returned by operations on a store that has no connection.
var ErrNotOpen = errors.New("state: database not opened")

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("state: run not found")

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// newWithDB wraps an existing connection.
func newWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open connects to the database at path, creating its directory.
// Use ":memory:" for a throwaway database.
func (s *SQLiteStore) Open(path string) error {
	dsn := memoryPath + "?_pragma=foreign_keys(1)"
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Path is the database location given to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func generateID() string {
	return uuid.New().String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(timeLayout, v)
}

// --- Runs ---

// CreateRun starts a new run for installDir.
func (s *SQLiteStore) CreateRun(installDir string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:         generateID(),
		InstallDir: installDir,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, install_dir, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.InstallDir, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the final status of a run.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun loads one run.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	row := s.db.QueryRow(
		`SELECT id, install_dir, status, started_at, completed_at, error FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. A non-positive limit returns all.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, install_dir, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastRun returns the newest run for installDir, or ErrRunNotFound.
func (s *SQLiteStore) LastRun(installDir string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	row := s.db.QueryRow(
		`SELECT id, install_dir, status, started_at, completed_at, error
		 FROM runs WHERE install_dir = ? ORDER BY started_at DESC LIMIT 1`, installDir,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no runs for %s", ErrRunNotFound, installDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.InstallDir, &status, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}

// --- Components ---

// RecordComponent stores what a run did to one component. Recording the same
// component twice in a run keeps the last record.
func (s *SQLiteStore) RecordComponent(c Component) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if c.InstalledAt.IsZero() {
		c.InstalledAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO components (run_id, name, version, action, installed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, name) DO UPDATE SET
		   version = excluded.version,
		   action = excluded.action,
		   installed_at = excluded.installed_at`,
		c.RunID, c.Name, c.Version, c.Action, formatTime(c.InstalledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record component %s: %w", c.Name, err)
	}
	return nil
}

// ComponentsForRun lists the components recorded by one run.
func (s *SQLiteStore) ComponentsForRun(runID string) ([]*Component, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.Query(
		`SELECT run_id, name, version, action, installed_at
		 FROM components WHERE run_id = ? ORDER BY installed_at`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return collectComponents(rows)
}

func collectComponents(rows *sql.Rows) ([]*Component, error) {
	defer rows.Close()

	var out []*Component
	for rows.Next() {
		var (
			c           Component
			installedAt string
		)
		if err := rows.Scan(&c.RunID, &c.Name, &c.Version, &c.Action, &installedAt); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		t, err := parseTime(installedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse component time: %w", err)
		}
		c.InstalledAt = t
		out = append(out, &c)
	}
	return out, rows.Err()
}
