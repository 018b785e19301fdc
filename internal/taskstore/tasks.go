package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/logging"
	"github.com/mrz1836/taskmcp/internal/tree"
)

// Tasks returns every task ordered by parent, position and id, with the
// current flag populated.
func (s *Store) Tasks(ctx context.Context) ([]domain.Task, error) {
	var out []domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = loadTasks(ctx, tx)
		return err
	})
	return out, err
}

// Get returns one task.
func (s *Store) Get(ctx context.Context, id int64) (domain.Task, error) {
	var out domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = getTask(ctx, tx, id)
		return err
	})
	return out, err
}

// Create appends a new task as the last child of parentID (nil = root).
func (s *Store) Create(ctx context.Context, title string, parentID *int64) (domain.Task, error) {
	return s.CreateAt(ctx, domain.NewTask{Title: title, ParentID: parentID, Position: -1})
}

// CreateAt inserts a new task at its position among the parent's children,
// shifting later siblings right. A negative or out-of-range position
// appends.
func (s *Store) CreateAt(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	parentID, position := in.ParentID, in.Position
	if title == "" {
		return domain.Task{}, fmt.Errorf("task title: %w", tmerrors.ErrEmptyValue)
	}

	var out domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if parentID != nil {
			ok, err := taskExists(ctx, tx, *parentID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("parent %d: %w", *parentID, tmerrors.ErrInvalidParent)
			}
		}

		var count int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE parent_id IS ?`, nullID(parentID)).Scan(&count)
		if err != nil {
			return tmerrors.Storage(err, "failed to count siblings")
		}

		if position < 0 || position > count {
			position = count
		}
		if position < count {
			_, err = tx.ExecContext(ctx, `UPDATE tasks SET position = position + 1
				WHERE parent_id IS ? AND position >= ?`, nullID(parentID), position)
			if err != nil {
				return tmerrors.Storage(err, "failed to shift siblings")
			}
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO tasks
			(title, parent_id, position, color, board_width, board_height, children_layout, children_comment_display)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			title, nullID(parentID), position, in.Color,
			constants.DefaultBoardWidth, constants.DefaultBoardHeight,
			constants.DefaultChildLayout, constants.DefaultChildCommentDisplay)
		if err != nil {
			return tmerrors.Storage(err, "failed to insert task")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return tmerrors.Storage(err, "failed to read task id")
		}

		out, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Debug().Int64("task_id", out.ID).Int("position", out.Position).
		Str("title", logging.SafeValue("title", out.Title)).Msg("task created")
	return out, nil
}

// Edit applies a partial update to a task's title and comments.
func (s *Store) Edit(ctx context.Context, id int64, in domain.EditInput) (domain.Task, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return domain.Task{}, fmt.Errorf("task title: %w", tmerrors.ErrEmptyValue)
	}

	var out domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			t.Title = strings.TrimSpace(*in.Title)
		}
		if in.Comments != nil {
			t.Comments = *in.Comments
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET title = ?, comments = ? WHERE id = ?`,
			t.Title, t.Comments, id); err != nil {
			return tmerrors.Storage(err, "failed to update task")
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Debug().Int64("task_id", id).Str("title", logging.SafeValue("title", out.Title)).Msg("task edited")
	return out, nil
}

// ToggleDone flips a task's done flag. Descendants are not touched.
func (s *Store) ToggleDone(ctx context.Context, id int64) (domain.Task, error) {
	var out domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		t.Done = !t.Done
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET done = ? WHERE id = ?`, boolInt(t.Done), id); err != nil {
			return tmerrors.Storage(err, "failed to toggle task")
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Debug().Int64("task_id", id).Bool("done", out.Done).Msg("task toggled")
	return out, nil
}

// UpdateLayout applies a partial layout update.
func (s *Store) UpdateLayout(ctx context.Context, id int64, patch domain.LayoutPatch) (domain.Task, error) {
	var out domain.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}

		t.Layout = patch.Apply(t.Layout)
		l := t.Layout
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET color = ?, board_x = ?, board_y = ?,
			board_width = ?, board_height = ?, children_layout = ?, children_comment_display = ?
			WHERE id = ?`,
			l.Color, nullInt(l.BoardX), nullInt(l.BoardY), l.BoardWidth, l.BoardHeight,
			l.ChildLayout, l.ChildCommentDisplay, id)
		if err != nil {
			return tmerrors.Storage(err, "failed to update layout")
		}
		out = t
		return nil
	})
	return out, err
}

// Delete removes a task and all of its descendants, clears the current
// record if it pointed into the removed subtree, and closes the gap in the
// former sibling group. It returns the removed ids in pre-order.
func (s *Store) Delete(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}

		idx := tree.NewIndex(tasks)
		target, ok := idx.Get(id)
		if !ok {
			return fmt.Errorf("task %d: %w", id, tmerrors.ErrTaskNotFound)
		}
		removed = idx.Subtree(id)

		inSubtree := make(map[int64]bool, len(removed))
		for _, rid := range removed {
			inSubtree[rid] = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, rid); err != nil {
				return tmerrors.Storage(err, "failed to delete task")
			}
		}

		cur, err := currentID(ctx, tx)
		if err != nil {
			return err
		}
		if cur != nil && inSubtree[*cur] {
			if _, err := clearCurrent(ctx, tx); err != nil {
				return err
			}
		}

		siblings := make([]int64, 0, len(idx.Group(target.ParentID)))
		for _, sid := range idx.Group(target.ParentID) {
			if sid != id {
				siblings = append(siblings, sid)
			}
		}
		return writeGroup(ctx, tx, idx, target.ParentID, siblings)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("task_id", id).Int("removed", len(removed)).Msg("task subtree deleted")
	return removed, nil
}

// writeGroup stores ids as the dense 0..n-1 children of parentID, writing
// only rows whose placement changed.
func writeGroup(ctx context.Context, tx *sql.Tx, idx *tree.Index, parentID *int64, ids []int64) error {
	for pos, id := range ids {
		t, _ := idx.Get(id)
		if t.Position == pos && domain.SameParent(t.ParentID, parentID) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET parent_id = ?, position = ? WHERE id = ?`,
			nullID(parentID), pos, id); err != nil {
			return tmerrors.Storage(err, "failed to write task position")
		}
	}
	return nil
}
