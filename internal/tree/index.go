package tree

import (
	"sort"

	"github.com/mrz1836/taskmcp/internal/domain"
)

// Index is an id lookup plus a children-by-parent index over one forest.
// Children are kept in display order: position, then id.
type Index struct {
	byID     map[int64]domain.Task
	children map[int64][]int64
	roots    []int64
}

// NewIndex indexes tasks. Tasks whose parent is not in the set are left out
// of the traversal order; Dangling reports them.
func NewIndex(tasks []domain.Task) *Index {
	idx := &Index{
		byID:     make(map[int64]domain.Task, len(tasks)),
		children: make(map[int64][]int64),
	}
	for _, t := range tasks {
		idx.byID[t.ID] = t
	}

	for _, t := range tasks {
		if t.ParentID == nil {
			idx.roots = append(idx.roots, t.ID)
			continue
		}
		if _, ok := idx.byID[*t.ParentID]; !ok {
			continue
		}
		idx.children[*t.ParentID] = append(idx.children[*t.ParentID], t.ID)
	}

	idx.sortIDs(idx.roots)
	for pid := range idx.children {
		idx.sortIDs(idx.children[pid])
	}
	return idx
}

func (idx *Index) sortIDs(ids []int64) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := idx.byID[ids[i]], idx.byID[ids[j]]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}

// Len returns the number of indexed tasks.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// Get returns the task with id.
func (idx *Index) Get(id int64) (domain.Task, bool) {
	t, ok := idx.byID[id]
	return t, ok
}

// Roots returns root ids in display order.
func (idx *Index) Roots() []int64 {
	return idx.roots
}

// Children returns the child ids of id in display order.
func (idx *Index) Children(id int64) []int64 {
	return idx.children[id]
}

// Group returns the sibling ids under parentID (nil = roots).
func (idx *Index) Group(parentID *int64) []int64 {
	if parentID == nil {
		return idx.roots
	}
	return idx.children[*parentID]
}

// Walk visits tasks in pre-order display order with their depth. Returning
// false from fn stops the walk.
func (idx *Index) Walk(fn func(t domain.Task, depth int) bool) {
	type frame struct {
		id    int64
		depth int
	}

	stack := make([]frame, 0, len(idx.roots))
	for i := len(idx.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: idx.roots[i]})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(idx.byID[top.id], top.depth) {
			return
		}

		kids := idx.children[top.id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: kids[i], depth: top.depth + 1})
		}
	}
}

// Subtree returns id followed by all of its descendants in pre-order. It is
// empty when id is unknown.
func (idx *Index) Subtree(id int64) []int64 {
	if _, ok := idx.byID[id]; !ok {
		return nil
	}

	out := []int64{}
	stack := []int64{id}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, top)

		kids := idx.children[top]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// Dangling returns tasks whose parent id references no task in the index,
// sorted by id.
func (idx *Index) Dangling() []domain.Task {
	var out []domain.Task
	for _, t := range idx.byID {
		if t.ParentID == nil {
			continue
		}
		if _, ok := idx.byID[*t.ParentID]; !ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsAncestor reports whether ancestor lies on id's parent chain. The walk
// stops on a repeated id so corrupt data cannot loop forever.
func (idx *Index) IsAncestor(ancestor, id int64) bool {
	seen := map[int64]bool{}
	cur, ok := idx.byID[id]
	for ok && cur.ParentID != nil {
		pid := *cur.ParentID
		if pid == ancestor {
			return true
		}
		if seen[pid] {
			return false
		}
		seen[pid] = true
		cur, ok = idx.byID[pid]
	}
	return false
}
