// Package taskstore persists one workspace's task forest in its own SQLite
// dataset and enforces the forest invariants on every mutation: parents
// exist, there are no cycles, sibling positions stay dense from 0, and at most
// one task is current.
//
// Every operation holds the store mutex for its whole duration and runs in a
// single transaction, so readers never observe a half-applied mutation and a
// rejected mutation leaves the dataset untouched.
package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/ctxutil"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

const dirPerm = 0o750

// Options configures Open.
type Options struct {
	// BusyTimeout is how long SQLite waits for a lock held by another
	// process. Zero uses constants.SQLiteBusyTimeout.
	BusyTimeout time.Duration

	// Logger receives debug records for each mutation.
	Logger zerolog.Logger
}

// Store is one workspace's task dataset.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
	logger zerolog.Logger
}

// Open opens or creates the dataset at path and migrates its schema.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, tmerrors.Storage(err, "failed to create dataset directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, tmerrors.Storage(err, "failed to open dataset")
	}
	// A single connection keeps the pragmas below in effect for every
	// statement and serializes writers inside this process.
	db.SetMaxOpenConns(1)

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = constants.SQLiteBusyTimeout
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", busy.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, tmerrors.Storage(err, "failed to configure dataset")
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		path:   path,
		logger: opts.Logger.With().Str("component", "taskstore").Str("dataset", filepath.Base(path)).Logger(),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0,
			parent_id INTEGER,
			position INTEGER NOT NULL DEFAULT 0,
			comments TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			board_x INTEGER,
			board_y INTEGER,
			board_width INTEGER NOT NULL DEFAULT 240,
			board_height INTEGER NOT NULL DEFAULT 100,
			children_layout TEXT NOT NULL DEFAULT 'vertical',
			children_comment_display TEXT NOT NULL DEFAULT 'compact'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id, position);`,
		`CREATE TABLE IF NOT EXISTS current_task (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			task_id INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return tmerrors.Storage(err, "failed to migrate dataset")
		}
	}
	return nil
}

// Path returns the dataset file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the dataset. Further operations fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return tmerrors.Storage(err, "failed to close dataset")
	}
	return nil
}

// inTx runs fn in one transaction under the store mutex. Errors returned by
// fn pass through unchanged; driver errors are classified as storage
// failures.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tmerrors.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return tmerrors.Storage(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return tmerrors.Storage(err, "failed to commit transaction")
	}
	return nil
}

const taskColumns = `id, title, done, parent_id, position, comments, color,
	board_x, board_y, board_width, board_height, children_layout, children_comment_display`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t              domain.Task
		done           int
		parentID       sql.NullInt64
		boardX, boardY sql.NullInt64
	)
	err := row.Scan(
		&t.ID, &t.Title, &done, &parentID, &t.Position, &t.Comments, &t.Layout.Color,
		&boardX, &boardY, &t.Layout.BoardWidth, &t.Layout.BoardHeight,
		&t.Layout.ChildLayout, &t.Layout.ChildCommentDisplay,
	)
	if err != nil {
		return domain.Task{}, err
	}

	t.Done = done != 0
	if parentID.Valid {
		t.ParentID = domain.ID(parentID.Int64)
	}
	if boardX.Valid {
		x := int(boardX.Int64)
		t.Layout.BoardX = &x
	}
	if boardY.Valid {
		y := int(boardY.Int64)
		t.Layout.BoardY = &y
	}
	return t, nil
}

// getTask reads one task with its current flag.
func getTask(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, tmerrors.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, tmerrors.Storage(err, "failed to read task")
	}

	cur, err := currentID(ctx, tx)
	if err != nil {
		return domain.Task{}, err
	}
	t.IsCurrent = cur != nil && *cur == t.ID
	return t, nil
}

// loadTasks reads the whole forest ordered by parent, position and id.
func loadTasks(ctx context.Context, tx *sql.Tx) ([]domain.Task, error) {
	return queryTasks(ctx, tx, `SELECT `+taskColumns+` FROM tasks
		ORDER BY COALESCE(parent_id, 0), position, id`)
}

func queryTasks(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]domain.Task, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, tmerrors.Storage(err, "failed to query tasks")
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, tmerrors.Storage(err, "failed to scan task")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, tmerrors.Storage(err, "failed to iterate tasks")
	}

	cur, err := currentID(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		for i := range out {
			out[i].IsCurrent = out[i].ID == *cur
		}
	}
	return out, nil
}

func taskExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, tmerrors.Storage(err, "failed to look up task")
	}
	return true, nil
}

// nullID converts an optional id to a driver value.
func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
