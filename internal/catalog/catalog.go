package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mocap/internal/config"
	"mocap/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one extraction of a capture file.
type Run struct {
	ID           string
	SourcePath   string
	SourceFile   string
	SourceSHA256 string
	OutputDir    string
	Status       RunStatus
	ErrorMessage string
	ClipCount    int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Clip is a clip file written by a run.
type Clip struct {
	ID         int64
	RunID      string
	SourceFile string
	Subject    string
	Style      string
	Start      int
	End        int
	Frames     int
	Path       string
	SHA256     string
	CreatedAt  time.Time
}

// ClipFilter narrows ListClips. Zero fields match everything.
type ClipFilter struct {
	RunID      string
	SourceFile string
	Style      string
	Limit      int
}

// Catalog is the SQLite-backed run and clip record.
type Catalog struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens the catalog configured in cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Catalog, error) {
	return OpenPath(cfg.Paths.CatalogPath, logger)
}

// OpenPath opens or creates the catalog database at path and applies pending
// migrations.
func OpenPath(path string, logger *slog.Logger) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	pragmas := []string{
		"journal_mode(WAL)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
	}
	dsn := path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db %q: %w", path, err)
	}

	c := &Catalog{db: db, path: path, logger: logging.NewComponentLogger(logger, "catalog")}
	if err := c.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

func (c *Catalog) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logger: c.logger}
	return m, nil
}

// The migrate instance is not closed: closing it would close c.db.
func (c *Catalog) migrateUp() error {
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (c *Catalog) SchemaVersion() (uint, bool, error) {
	m, err := c.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }

// BeginRun records the start of an extraction and returns the new run with a
// fresh ID.
func (c *Catalog) BeginRun(ctx context.Context, sourcePath, sourceFile, sourceSHA256, outputDir string) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		SourcePath:   sourcePath,
		SourceFile:   sourceFile,
		SourceSHA256: sourceSHA256,
		OutputDir:    outputDir,
		Status:       RunRunning,
		StartedAt:    time.Now().UTC(),
	}
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, source_path, source_file, source_sha256, output_dir, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourcePath,
		run.SourceFile,
		nullableString(run.SourceSHA256),
		run.OutputDir,
		run.Status,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordClip stores a clip written by runID and bumps the run's clip count.
func (c *Catalog) RecordClip(ctx context.Context, runID string, clip Clip) (int64, error) {
	if clip.End <= clip.Start {
		return 0, fmt.Errorf("record clip %s/%s: empty range [%d, %d)", clip.SourceFile, clip.Style, clip.Start, clip.End)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clip tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO clips (run_id, source_file, subject, style, start_frame, end_frame, frames, path, sha256, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		clip.SourceFile,
		nullableString(clip.Subject),
		clip.Style,
		clip.Start,
		clip.End,
		clip.End-clip.Start,
		clip.Path,
		clip.SHA256,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert clip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET clip_count = clip_count + 1 WHERE id = ?`, runID); err != nil {
		return 0, fmt.Errorf("update run clip count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clip: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (c *Catalog) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := RunCompleted
	var msg string
	if runErr != nil {
		status = RunFailed
		msg = runErr.Error()
	}
	res, err := c.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status,
		nullableString(msg),
		formatTime(time.Now().UTC()),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// GetRun returns a run by ID, or nil when it does not exist.
func (c *Catalog) GetRun(ctx context.Context, id string) (*Run, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (c *Catalog) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListClips returns clips matching filter ordered by source file, then start
// frame.
func (c *Catalog) ListClips(ctx context.Context, filter ClipFilter) ([]Clip, error) {
	var (
		where []string
		args  []any
	)
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.SourceFile != "" {
		where = append(where, "source_file = ?")
		args = append(args, filter.SourceFile)
	}
	if filter.Style != "" {
		where = append(where, "style = ?")
		args = append(args, filter.Style)
	}

	query := `SELECT ` + clipColumns + ` FROM clips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY source_file, start_frame, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clips = append(clips, *clip)
	}
	return clips, rows.Err()
}
