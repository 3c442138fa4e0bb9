package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/task-consolidator/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// taskRow mirrors the tasks table.
type taskRow struct {
	RunID       string `db:"run_id"`
	Seq         int    `db:"seq"`
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Source      string `db:"source"`
	SourceType  string `db:"source_type"`
	URL         string `db:"url"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
	Metadata    string `db:"metadata"`
}

// runRow mirrors the runs table.
type runRow struct {
	ID        string `db:"id"`
	StartedAt string `db:"started_at"`
	Format    string `db:"format"`
	TaskCount int    `db:"task_count"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveRun writes run and its tasks inside one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, tasks []model.Task) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, started_at, format, task_count)
		VALUES (:id, :started_at, :format, :task_count)`,
		runRow{
			ID:        run.ID,
			StartedAt: formatTime(run.StartedAt),
			Format:    run.Format,
			TaskCount: len(tasks),
		},
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	const query = `
		INSERT INTO tasks (
			run_id, seq, id, title, description,
			source, source_type, url,
			created_at, updated_at, metadata
		) VALUES (
			:run_id, :seq, :id, :title, :description,
			:source, :source_type, :url,
			:created_at, :updated_at, :metadata
		)`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("preparing task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		row, err := toRow(run.ID, i, t)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return "", fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// GetRuns lists runs, most recent first.
func (s *SQLiteStore) GetRuns(ctx context.Context) ([]Run, error) {
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, started_at, format, task_count FROM runs ORDER BY started_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		startedAt, err := parseTime(r.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run %s start: %w", r.ID, err)
		}
		runs = append(runs, Run{
			ID:        r.ID,
			StartedAt: startedAt,
			Format:    r.Format,
			TaskCount: r.TaskCount,
		})
	}
	return runs, nil
}

// GetRunTasks returns the tasks stored for runID in their original order.
func (s *SQLiteStore) GetRunTasks(ctx context.Context, runID string) ([]model.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks WHERE run_id = ? ORDER BY seq", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for run %s: %w", runID, err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		task, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func toRow(runID string, seq int, t model.Task) (taskRow, error) {
	metadata := t.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return taskRow{}, fmt.Errorf("marshaling metadata for task %s: %w", t.ID, err)
	}

	return taskRow{
		RunID:       runID,
		Seq:         seq,
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Source:      string(t.Source),
		SourceType:  t.SourceType,
		URL:         t.URL,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		Metadata:    string(raw),
	}, nil
}

func fromRow(r taskRow) (model.Task, error) {
	task := model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Source:      model.Source(r.Source),
		SourceType:  r.SourceType,
		URL:         r.URL,
	}

	var err error
	if task.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return model.Task{}, fmt.Errorf("parsing created_at of task %s: %w", r.ID, err)
	}
	if task.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return model.Task{}, fmt.Errorf("parsing updated_at of task %s: %w", r.ID, err)
	}

	if err := json.Unmarshal([]byte(r.Metadata), &task.Metadata); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling metadata of task %s: %w", r.ID, err)
	}

	return task, nil
}

// formatTime stores timestamps as RFC 3339 text; the zero time is "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
