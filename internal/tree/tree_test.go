package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/domain"
)

func sample() []domain.Task {
	// 1
	// ├── 2
	// │   └── 4 (current)
	// └── 3
	// 5
	return []domain.Task{
		{ID: 5, Title: "E", Position: 1},
		{ID: 3, Title: "C", ParentID: domain.ID(1), Position: 1},
		{ID: 1, Title: "A", Position: 0},
		{ID: 4, Title: "D", ParentID: domain.ID(2), Position: 0, IsCurrent: true},
		{ID: 2, Title: "B", ParentID: domain.ID(1), Position: 0},
	}
}

func walkIDs(idx *Index) []int64 {
	var ids []int64
	idx.Walk(func(t domain.Task, _ int) bool {
		ids = append(ids, t.ID)
		return true
	})
	return ids
}

// TestBuild tests nesting and display order.
func TestBuild(t *testing.T) {
	forest := Build(sample())

	require.Len(t, forest, 2)
	assert.Equal(t, int64(1), forest[0].ID)
	assert.Equal(t, int64(5), forest[1].ID)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, int64(2), forest[0].Children[0].ID)
	assert.Equal(t, int64(3), forest[0].Children[1].ID)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, int64(4), forest[0].Children[0].Children[0].ID)
	assert.NotNil(t, forest[1].Children, "leaf children must be an empty slice")
	assert.Empty(t, Build(nil))
}

// TestIndex_Walk tests pre-order traversal with depth and early stop.
func TestIndex_Walk(t *testing.T) {
	idx := NewIndex(sample())
	assert.Equal(t, []int64{1, 2, 4, 3, 5}, walkIDs(idx))

	depths := map[int64]int{}
	idx.Walk(func(task domain.Task, depth int) bool {
		depths[task.ID] = depth
		return task.ID != 4
	})
	assert.Equal(t, map[int64]int{1: 0, 2: 1, 4: 2}, depths)
}

// TestIndex_Order tests that equal positions fall back to id order.
func TestIndex_Order(t *testing.T) {
	idx := NewIndex([]domain.Task{
		{ID: 9, Position: 0},
		{ID: 7, Position: 0},
		{ID: 8, Position: 1},
	})
	assert.Equal(t, []int64{7, 9, 8}, idx.Roots())
}

// TestIndex_Subtree tests descendant collection.
func TestIndex_Subtree(t *testing.T) {
	idx := NewIndex(sample())

	assert.Equal(t, []int64{1, 2, 4, 3}, idx.Subtree(1))
	assert.Equal(t, []int64{4}, idx.Subtree(4))
	assert.Empty(t, idx.Subtree(99))
}

// TestIndex_IsAncestor tests parent-chain queries.
func TestIndex_IsAncestor(t *testing.T) {
	idx := NewIndex(sample())

	assert.True(t, idx.IsAncestor(1, 4))
	assert.True(t, idx.IsAncestor(2, 4))
	assert.False(t, idx.IsAncestor(4, 1))
	assert.False(t, idx.IsAncestor(5, 4))
	assert.False(t, idx.IsAncestor(4, 4))
}

// TestIndex_IsAncestorCorrupt tests that a parent cycle in raw data terminates.
func TestIndex_IsAncestorCorrupt(t *testing.T) {
	idx := NewIndex([]domain.Task{
		{ID: 1, ParentID: domain.ID(2)},
		{ID: 2, ParentID: domain.ID(1)},
	})
	assert.True(t, idx.IsAncestor(2, 1))
	assert.False(t, idx.IsAncestor(3, 1))
	assert.Empty(t, walkIDs(idx))
}

// TestFindCurrentNode tests locating the current task in a nested forest.
func TestFindCurrentNode(t *testing.T) {
	n := FindCurrentNode(Build(sample()))
	require.NotNil(t, n)
	assert.Equal(t, int64(4), n.ID)

	assert.Nil(t, FindCurrentNode(Build([]domain.Task{{ID: 1}})))
	assert.Nil(t, FindCurrentNode(nil))
}

// TestFindNode tests id lookup in a nested forest.
func TestFindNode(t *testing.T) {
	forest := Build(sample())

	n := FindNode(forest, 3)
	require.NotNil(t, n)
	assert.Equal(t, "C", n.Title)
	assert.Nil(t, FindNode(forest, 42))
}

// TestFocus tests the single-task view.
func TestFocus(t *testing.T) {
	forest := Build(sample())

	focused := Focus(forest, 2)
	require.Len(t, focused, 1)
	assert.Equal(t, int64(2), focused[0].ID)
	require.Len(t, focused[0].Children, 1)

	assert.Empty(t, Focus(forest, 42))
	assert.NotNil(t, Focus(forest, 42))
}

// TestFlatten tests pre-order flattening into reorder updates.
func TestFlatten(t *testing.T) {
	got := Flatten(Build(sample()))

	want := []domain.Reorder{
		{ID: 1, Position: 0},
		{ID: 2, Position: 0, ParentID: domain.ID(1)},
		{ID: 4, Position: 0, ParentID: domain.ID(2)},
		{ID: 3, Position: 1, ParentID: domain.ID(1)},
		{ID: 5, Position: 1},
	}
	assert.Equal(t, want, got)
}

// TestFlatten_RoundTrip tests that flattening a built forest reproduces it.
func TestFlatten_RoundTrip(t *testing.T) {
	forest := Build(sample())
	updates := Flatten(forest)

	rebuilt := make([]domain.Task, 0, len(updates))
	for _, u := range updates {
		rebuilt = append(rebuilt, domain.Task{ID: u.ID, ParentID: u.ParentID, Position: u.Position})
	}
	assert.Equal(t, Flatten(forest), Flatten(Build(rebuilt)))
}

// TestDeepForest tests that very deep chains do not exhaust the stack.
func TestDeepForest(t *testing.T) {
	const depth = 100000
	tasks := make([]domain.Task, 0, depth)
	tasks = append(tasks, domain.Task{ID: 1})
	for i := int64(2); i <= depth; i++ {
		tasks = append(tasks, domain.Task{ID: i, ParentID: domain.ID(i - 1)})
	}
	tasks[depth-1].IsCurrent = true

	idx := NewIndex(tasks)
	assert.Len(t, idx.Subtree(1), depth)

	forest := idx.Nodes()
	n := FindCurrentNode(forest)
	require.NotNil(t, n)
	assert.Equal(t, int64(depth), n.ID)
	assert.Len(t, Flatten(forest), depth)
}

// TestDangling tests detection of tasks with a missing parent.
func TestDangling(t *testing.T) {
	tasks := append(sample(), domain.Task{ID: 10, ParentID: domain.ID(77)})

	got := Dangling(tasks)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ID)
	assert.NotContains(t, walkIDs(NewIndex(tasks)), int64(10))
}
