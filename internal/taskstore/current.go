package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

// currentID reads the single current-task record.
func currentID(ctx context.Context, tx *sql.Tx) (*int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT task_id FROM current_task WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no current task is a valid state
	}
	if err != nil {
		return nil, tmerrors.Storage(err, "failed to read current task")
	}
	return &id, nil
}

func clearCurrent(ctx context.Context, tx *sql.Tx) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM current_task`)
	if err != nil {
		return false, tmerrors.Storage(err, "failed to clear current task")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, tmerrors.Storage(err, "failed to clear current task")
	}
	return n > 0, nil
}

func writeCurrent(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO current_task (id, task_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET task_id = excluded.task_id`, id)
	if err != nil {
		return tmerrors.Storage(err, "failed to set current task")
	}
	return nil
}

// SetCurrent makes id the workspace's only current task. It reports false
// when id was already current.
func (s *Store) SetCurrent(ctx context.Context, id int64) (bool, error) {
	changed := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := taskExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("task %d: %w", id, tmerrors.ErrTaskNotFound)
		}

		cur, err := currentID(ctx, tx)
		if err != nil {
			return err
		}
		if cur != nil && *cur == id {
			return nil
		}

		changed = true
		return writeCurrent(ctx, tx, id)
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Debug().Int64("task_id", id).Msg("current task set")
	}
	return changed, nil
}

// ClearCurrent removes the current-task record. It reports whether there
// was one.
func (s *Store) ClearCurrent(ctx context.Context) (bool, error) {
	changed := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		changed, err = clearCurrent(ctx, tx)
		return err
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Debug().Msg("current task cleared")
	}
	return changed, nil
}

// Current returns the current task, or nil when there is none. A record
// pointing at a task that no longer exists reads as none.
func (s *Store) Current(ctx context.Context) (*domain.Task, error) {
	var out *domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := currentID(ctx, tx)
		if err != nil || cur == nil {
			return err
		}

		t, err := getTask(ctx, tx, *cur)
		if errors.Is(err, tmerrors.ErrTaskNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &t
		return nil
	})
	return out, err
}
