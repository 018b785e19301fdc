package tree

import (
	"github.com/mrz1836/taskmcp/internal/domain"
)

// Build nests tasks into a forest in display order. Each returned node holds
// a copy of its task.
func Build(tasks []domain.Task) []*domain.Node {
	return NewIndex(tasks).Nodes()
}

// Nodes materializes the indexed forest.
func (idx *Index) Nodes() []*domain.Node {
	nodes := make(map[int64]*domain.Node, len(idx.byID))
	roots := make([]*domain.Node, 0, len(idx.roots))

	idx.Walk(func(t domain.Task, _ int) bool {
		n := &domain.Node{Task: t, Children: []*domain.Node{}}
		nodes[t.ID] = n
		if t.ParentID == nil {
			roots = append(roots, n)
			return true
		}
		parent := nodes[*t.ParentID]
		parent.Children = append(parent.Children, n)
		return true
	})
	return roots
}

// Flatten walks a nested forest in pre-order and returns one Reorder per
// node: its index among its siblings and its enclosing node's id.
func Flatten(forest []*domain.Node) []domain.Reorder {
	type frame struct {
		node     *domain.Node
		position int
		parentID *int64
	}

	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: forest[i], position: i})
	}

	var out []domain.Reorder
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == nil {
			continue
		}

		out = append(out, domain.Reorder{
			ID:       top.node.ID,
			Position: top.position,
			ParentID: top.parentID,
		})

		id := top.node.ID
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Children[i], position: i, parentID: &id})
		}
	}
	return out
}

// FindNode returns the node with id in a nested forest, or nil.
func FindNode(forest []*domain.Node, id int64) *domain.Node {
	return findNode(forest, func(n *domain.Node) bool { return n.ID == id })
}

// FindCurrentNode returns the first current node in display order, or nil.
func FindCurrentNode(forest []*domain.Node) *domain.Node {
	return findNode(forest, func(n *domain.Node) bool { return n.IsCurrent })
}

func findNode(forest []*domain.Node, match func(*domain.Node) bool) *domain.Node {
	stack := make([]*domain.Node, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, forest[i])
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if match(n) {
			return n
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil
}

// Focus returns a single-element forest holding the node with id and its
// descendants, or an empty forest when id is absent.
func Focus(forest []*domain.Node, id int64) []*domain.Node {
	n := FindNode(forest, id)
	if n == nil {
		return []*domain.Node{}
	}
	return []*domain.Node{n}
}

// Dangling returns tasks whose parent does not exist.
func Dangling(tasks []domain.Task) []domain.Task {
	return NewIndex(tasks).Dangling()
}
