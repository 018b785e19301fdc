package taskstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/tree"
)

// placement is where a task ends up after a reorder.
type placement struct {
	parentID *int64
	position int
}

func invalidOrder(format string, args ...any) error {
	return fmt.Errorf("%w: %s", tmerrors.ErrInvalidOrder, fmt.Sprintf(format, args...))
}

// planReorder validates updates against the current forest and returns the
// new placement of every task whose parent or position changes.
//
// Supplied tasks land exactly at their supplied positions. The remaining
// members of every affected group keep their relative order and fill the
// free slots, so each group stays dense.
func planReorder(tasks []domain.Task, updates []domain.Reorder) (map[int64]placement, error) {
	if len(updates) == 0 {
		return map[int64]placement{}, nil
	}

	byID := make(map[int64]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	requested := make(map[int64]domain.Reorder, len(updates))
	for _, u := range updates {
		if _, ok := byID[u.ID]; !ok {
			return nil, invalidOrder("task %d does not exist", u.ID)
		}
		if _, dup := requested[u.ID]; dup {
			return nil, invalidOrder("task %d appears more than once", u.ID)
		}
		if u.Position < 0 {
			return nil, invalidOrder("task %d has negative position %d", u.ID, u.Position)
		}
		if u.ParentID != nil {
			if *u.ParentID == u.ID {
				return nil, invalidOrder("task %d cannot be its own parent", u.ID)
			}
			if _, ok := byID[*u.ParentID]; !ok {
				return nil, invalidOrder("parent %d of task %d does not exist", *u.ParentID, u.ID)
			}
		}
		requested[u.ID] = u
	}

	parentOf := func(id int64) *int64 {
		if u, ok := requested[id]; ok {
			return u.ParentID
		}
		return byID[id].ParentID
	}

	for id := range requested {
		if createsCycle(id, parentOf) {
			return nil, invalidOrder("moving task %d would create a cycle", id)
		}
	}

	// Groups touched by the update: every target group and every group a
	// moved task leaves.
	affected := map[int64]*int64{}
	for id, u := range requested {
		affected[domain.ParentKey(u.ParentID)] = u.ParentID
		old := byID[id].ParentID
		affected[domain.ParentKey(old)] = old
	}

	members := map[int64][]int64{}
	for _, t := range tasks {
		key := domain.ParentKey(parentOf(t.ID))
		if _, ok := affected[key]; ok {
			members[key] = append(members[key], t.ID)
		}
	}

	plan := map[int64]placement{}
	for key, parentID := range affected {
		ids := members[key]
		n := len(ids)

		slots := make([]int64, n)
		taken := make([]bool, n)
		var rest []int64
		for _, id := range ids {
			u, ok := requested[id]
			if !ok {
				rest = append(rest, id)
				continue
			}
			if u.Position >= n {
				return nil, invalidOrder("position %d of task %d is outside a group of %d", u.Position, id, n)
			}
			if taken[u.Position] {
				return nil, invalidOrder("tasks %d and %d both claim position %d", slots[u.Position], id, u.Position)
			}
			slots[u.Position] = id
			taken[u.Position] = true
		}

		sort.SliceStable(rest, func(i, j int) bool {
			a, b := byID[rest[i]], byID[rest[j]]
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		})

		next := 0
		for pos := range slots {
			if !taken[pos] {
				slots[pos] = rest[next]
				next++
			}
			id := slots[pos]
			t := byID[id]
			if t.Position != pos || !t.HasParent(parentID) {
				plan[id] = placement{parentID: parentID, position: pos}
			}
		}
	}
	return plan, nil
}

// createsCycle walks id's new parent chain and reports whether it returns
// to id or loops.
func createsCycle(id int64, parentOf func(int64) *int64) bool {
	seen := map[int64]bool{id: true}
	p := parentOf(id)
	for p != nil {
		if seen[*p] {
			return true
		}
		seen[*p] = true
		p = parentOf(*p)
	}
	return false
}

func applyPlan(ctx context.Context, tx *sql.Tx, plan map[int64]placement) error {
	ids := make([]int64, 0, len(plan))
	for id := range plan {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := plan[id]
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET parent_id = ?, position = ? WHERE id = ?`,
			nullID(p.parentID), p.position, id); err != nil {
			return tmerrors.Storage(err, "failed to write task position")
		}
	}
	return nil
}

// Reorder applies a bulk set of placements all-or-nothing and returns how
// many tasks moved. Only parent and position change. Any invalid update
// rejects the whole set with ErrInvalidOrder and nothing is written.
func (s *Store) Reorder(ctx context.Context, updates []domain.Reorder) (int, error) {
	moved := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}

		plan, err := planReorder(tasks, updates)
		if err != nil {
			return err
		}
		moved = len(plan)
		return applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Int("updates", len(updates)).Int("moved", moved).Msg("tasks reordered")
	return moved, nil
}

// move resolves a single-task move against the loaded forest and applies
// it. It returns the moved task and how many placements changed; zero
// means the task was already there.
func (s *Store) move(ctx context.Context, id int64, resolve func(idx *tree.Index, t domain.Task) (domain.Reorder, error)) (domain.Task, int, error) {
	var (
		out   domain.Task
		moved int
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		tasks, err := loadTasks(ctx, tx)
		if err != nil {
			return err
		}

		idx := tree.NewIndex(tasks)
		t, ok := idx.Get(id)
		if !ok {
			return fmt.Errorf("task %d: %w", id, tmerrors.ErrTaskNotFound)
		}

		update, err := resolve(idx, t)
		if err != nil {
			return err
		}

		plan, err := planReorder(tasks, []domain.Reorder{update})
		if err != nil {
			return err
		}
		if err := applyPlan(ctx, tx, plan); err != nil {
			return err
		}
		moved = len(plan)

		out, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.Task{}, 0, err
	}

	s.logger.Debug().Int64("task_id", id).Int("position", out.Position).Int("moved", moved).Msg("task moved")
	return out, moved, nil
}

// siblingsWithout returns the group under parentID minus id.
func siblingsWithout(idx *tree.Index, parentID *int64, id int64) []int64 {
	group := idx.Group(parentID)
	out := make([]int64, 0, len(group))
	for _, sid := range group {
		if sid != id {
			out = append(out, sid)
		}
	}
	return out
}

// MoveAsChild makes id the last child of parentID (nil = last root). Like
// every single-task move it also returns how many placements changed.
func (s *Store) MoveAsChild(ctx context.Context, id int64, parentID *int64) (domain.Task, int, error) {
	return s.move(ctx, id, func(idx *tree.Index, _ domain.Task) (domain.Reorder, error) {
		if parentID != nil {
			if *parentID == id {
				return domain.Reorder{}, invalidOrder("task %d cannot be its own parent", id)
			}
			if _, ok := idx.Get(*parentID); !ok {
				return domain.Reorder{}, fmt.Errorf("parent %d: %w", *parentID, tmerrors.ErrTaskNotFound)
			}
			if idx.IsAncestor(id, *parentID) {
				return domain.Reorder{}, invalidOrder("task %d cannot move under its descendant %d", id, *parentID)
			}
		}
		return domain.Reorder{
			ID:       id,
			ParentID: parentID,
			Position: len(siblingsWithout(idx, parentID, id)),
		}, nil
	})
}

// MoveAfter places id directly after afterID, adopting afterID's parent.
func (s *Store) MoveAfter(ctx context.Context, id, afterID int64) (domain.Task, int, error) {
	return s.move(ctx, id, func(idx *tree.Index, _ domain.Task) (domain.Reorder, error) {
		if afterID == id {
			return domain.Reorder{}, invalidOrder("task %d cannot follow itself", id)
		}
		target, ok := idx.Get(afterID)
		if !ok {
			return domain.Reorder{}, fmt.Errorf("task %d: %w", afterID, tmerrors.ErrTaskNotFound)
		}

		siblings := siblingsWithout(idx, target.ParentID, id)
		pos := len(siblings)
		for i, sid := range siblings {
			if sid == afterID {
				pos = i + 1
				break
			}
		}
		return domain.Reorder{ID: id, ParentID: target.ParentID, Position: pos}, nil
	})
}

// MoveTo repositions id within its current sibling group. Out-of-range
// positions clamp to the nearest end.
func (s *Store) MoveTo(ctx context.Context, id int64, position int) (domain.Task, int, error) {
	return s.move(ctx, id, func(idx *tree.Index, t domain.Task) (domain.Reorder, error) {
		last := len(idx.Group(t.ParentID)) - 1
		if position > last {
			position = last
		}
		if position < 0 {
			position = 0
		}
		return domain.Reorder{ID: id, ParentID: t.ParentID, Position: position}, nil
	})
}
