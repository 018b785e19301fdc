package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/tree"
)

// Export copies the forest and the current record into a snapshot. The
// caller fills in the workspace name and timestamp.
func (s *Store) Export(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}
		cur, err := currentID(ctx, tx)
		if err != nil {
			return err
		}

		snap.Tasks = tasks
		for _, t := range tasks {
			if cur != nil && t.ID == *cur {
				snap.CurrentID = cur
			}
		}
		return nil
	})
	return snap, err
}

func invalidSnapshot(format string, args ...any) error {
	return fmt.Errorf("%w: %s", tmerrors.ErrInvalidSnapshot, fmt.Sprintf(format, args...))
}

// validateSnapshot checks that snap describes an acyclic forest with unique
// positive ids and returns its tasks with dense sibling positions.
func validateSnapshot(snap domain.Snapshot) ([]domain.Task, error) {
	seen := make(map[int64]bool, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if t.ID <= 0 {
			return nil, invalidSnapshot("task id %d is not positive", t.ID)
		}
		if seen[t.ID] {
			return nil, invalidSnapshot("task id %d appears more than once", t.ID)
		}
		seen[t.ID] = true
	}

	for _, t := range snap.Tasks {
		if t.ParentID != nil && !seen[*t.ParentID] {
			return nil, invalidSnapshot("task %d references missing parent %d", t.ID, *t.ParentID)
		}
	}

	idx := tree.NewIndex(snap.Tasks)
	reached := 0
	idx.Walk(func(domain.Task, int) bool {
		reached++
		return true
	})
	if reached != idx.Len() {
		return nil, invalidSnapshot("%d tasks form a parent cycle", idx.Len()-reached)
	}

	if snap.CurrentID != nil && !seen[*snap.CurrentID] {
		return nil, invalidSnapshot("current task %d does not exist", *snap.CurrentID)
	}

	out := make([]domain.Task, 0, len(snap.Tasks))
	renumber := func(ids []int64) {
		for pos, id := range ids {
			t, _ := idx.Get(id)
			t.Position = pos
			out = append(out, t)
		}
	}
	renumber(idx.Roots())
	idx.Walk(func(t domain.Task, _ int) bool {
		renumber(idx.Children(t.ID))
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Import loads a snapshot into an empty store, keeping task ids. Sibling
// positions are renumbered densely in their snapshot order.
func (s *Store) Import(ctx context.Context, snap domain.Snapshot) error {
	tasks, err := validateSnapshot(snap)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
			return tmerrors.Storage(err, "failed to count tasks")
		}
		if count > 0 {
			return invalidSnapshot("target dataset already holds %d tasks", count)
		}

		for _, t := range tasks {
			l := withLayoutDefaults(t.Layout)
			_, err := tx.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.Title, boolInt(t.Done), nullID(t.ParentID), t.Position, t.Comments, l.Color,
				nullInt(l.BoardX), nullInt(l.BoardY), l.BoardWidth, l.BoardHeight,
				l.ChildLayout, l.ChildCommentDisplay)
			if err != nil {
				return tmerrors.Storage(err, "failed to import task")
			}
		}

		if snap.CurrentID != nil {
			return writeCurrent(ctx, tx, *snap.CurrentID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int("tasks", len(tasks)).Msg("snapshot imported")
	return nil
}

// withLayoutDefaults fills layout fields a snapshot left empty.
func withLayoutDefaults(l domain.Layout) domain.Layout {
	if l.BoardWidth <= 0 {
		l.BoardWidth = constants.DefaultBoardWidth
	}
	if l.BoardHeight <= 0 {
		l.BoardHeight = constants.DefaultBoardHeight
	}
	if l.ChildLayout == "" {
		l.ChildLayout = constants.DefaultChildLayout
	}
	if l.ChildCommentDisplay == "" {
		l.ChildCommentDisplay = constants.DefaultChildCommentDisplay
	}
	return l
}
