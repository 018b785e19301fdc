package taskstore

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

// TestReorder_Scenario tests the basic child ordering scenario:
// A(1); B(2) under 1; C(3) under 1; reorder gives 1:[B0, C1].
func TestReorder_Scenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", &a.ID)
	c := mustCreate(t, s, "C", &a.ID)

	_, err := s.Reorder(ctx, []domain.Reorder{
		{ID: b.ID, Position: 0, ParentID: &a.ID},
		{ID: c.ID, Position: 1, ParentID: &a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, layout(t, s)[a.ID])

	moved, err := s.Reorder(ctx, []domain.Reorder{
		{ID: c.ID, Position: 0, ParentID: &a.ID},
		{ID: b.ID, Position: 1, ParentID: &a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Equal(t, []int64{c.ID, b.ID}, layout(t, s)[a.ID])
	requireInvariants(t, s)
}

// TestReorder_Reparent tests moving a task between groups.
func TestReorder_Reparent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", nil)
	c := mustCreate(t, s, "C", nil)
	d := mustCreate(t, s, "D", &c.ID)

	_, err := s.Reorder(ctx, []domain.Reorder{{ID: a.ID, Position: 0, ParentID: &c.ID}})
	require.NoError(t, err)

	l := layout(t, s)
	assert.Equal(t, []int64{b.ID, c.ID}, l[0])
	assert.Equal(t, []int64{a.ID, d.ID}, l[c.ID])
	requireInvariants(t, s)
}

// TestReorder_Rejected tests that every invalid set leaves the forest unchanged.
func TestReorder_Rejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", &a.ID)
	c := mustCreate(t, s, "C", &a.ID)
	before := layout(t, s)

	tests := []struct {
		name    string
		updates []domain.Reorder
	}{
		{"duplicate position in one group", []domain.Reorder{
			{ID: b.ID, Position: 0, ParentID: &a.ID},
			{ID: c.ID, Position: 0, ParentID: &a.ID},
		}},
		{"unknown task", []domain.Reorder{{ID: 999, Position: 0}}},
		{"missing parent", []domain.Reorder{{ID: b.ID, Position: 0, ParentID: domain.ID(999)}}},
		{"self parent", []domain.Reorder{{ID: a.ID, Position: 0, ParentID: &a.ID}}},
		{"cycle through descendant", []domain.Reorder{{ID: a.ID, Position: 0, ParentID: &b.ID}}},
		{"two-task cycle", []domain.Reorder{
			{ID: b.ID, Position: 0, ParentID: &c.ID},
			{ID: c.ID, Position: 0, ParentID: &b.ID},
		}},
		{"duplicate id", []domain.Reorder{
			{ID: b.ID, Position: 0, ParentID: &a.ID},
			{ID: b.ID, Position: 1, ParentID: &a.ID},
		}},
		{"negative position", []domain.Reorder{{ID: b.ID, Position: -1, ParentID: &a.ID}}},
		{"position past group end", []domain.Reorder{{ID: b.ID, Position: 5, ParentID: &a.ID}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			moved, err := s.Reorder(ctx, tc.updates)
			require.ErrorIs(t, err, tmerrors.ErrInvalidOrder)
			assert.Zero(t, moved)
			assert.Equal(t, before, layout(t, s))
		})
	}
}

// TestReorder_Empty tests that an empty set is a successful no-op.
func TestReorder_Empty(t *testing.T) {
	s := newTestStore(t)
	mustCreate(t, s, "A", nil)

	moved, err := s.Reorder(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

// TestReorder_PartialGroup tests that unsupplied siblings fill the free slots in order.
func TestReorder_PartialGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := make([]int64, 0, 4)
	for _, title := range []string{"A", "B", "C", "D"} {
		ids = append(ids, mustCreate(t, s, title, nil).ID)
	}

	_, err := s.Reorder(ctx, []domain.Reorder{{ID: ids[3], Position: 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0], ids[3], ids[1], ids[2]}, layout(t, s)[0])
}

// TestReorder_CurrentUntouched tests that reordering never moves the current flag.
func TestReorder_CurrentUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", nil)
	_, err := s.SetCurrent(ctx, a.ID)
	require.NoError(t, err)

	_, err = s.Reorder(ctx, []domain.Reorder{{ID: a.ID, Position: 0, ParentID: &b.ID}})
	require.NoError(t, err)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, a.ID, cur.ID)
}

// TestMoveAsChild tests appending under another task.
func TestMoveAsChild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", &a.ID)
	c := mustCreate(t, s, "C", nil)

	got, _, err := s.MoveAsChild(ctx, c.ID, &a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Position)
	assert.Equal(t, []int64{b.ID, c.ID}, layout(t, s)[a.ID])

	got, _, err = s.MoveAsChild(ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, []int64{a.ID, b.ID}, layout(t, s)[0])

	_, _, err = s.MoveAsChild(ctx, a.ID, &a.ID)
	require.ErrorIs(t, err, tmerrors.ErrInvalidOrder)
	_, _, err = s.MoveAsChild(ctx, a.ID, &c.ID)
	require.ErrorIs(t, err, tmerrors.ErrInvalidOrder, "c is a's child")
	_, _, err = s.MoveAsChild(ctx, 999, nil)
	require.ErrorIs(t, err, tmerrors.ErrTaskNotFound)
	requireInvariants(t, s)
}

// TestMoveAfter tests placing a task directly after another.
func TestMoveAfter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", &a.ID)
	c := mustCreate(t, s, "C", &a.ID)
	d := mustCreate(t, s, "D", nil)

	_, _, err := s.MoveAfter(ctx, d.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, d.ID, c.ID}, layout(t, s)[a.ID])

	_, _, err = s.MoveAfter(ctx, b.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{d.ID, c.ID, b.ID}, layout(t, s)[a.ID])

	_, _, err = s.MoveAfter(ctx, b.ID, b.ID)
	require.ErrorIs(t, err, tmerrors.ErrInvalidOrder)
	_, _, err = s.MoveAfter(ctx, b.ID, 999)
	require.ErrorIs(t, err, tmerrors.ErrTaskNotFound)
	requireInvariants(t, s)
}

// TestMoveTo tests repositioning within the current group.
func TestMoveTo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", nil)
	c := mustCreate(t, s, "C", nil)

	_, _, err := s.MoveTo(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, layout(t, s)[0])

	got, _, err := s.MoveTo(ctx, c.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Position)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, layout(t, s)[0])
}

// TestMove_ReportsMovedCount tests that single-task moves count changed
// placements and report zero when the task is already in place.
func TestMove_ReportsMovedCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", nil)
	c := mustCreate(t, s, "C", &a.ID)

	_, moved, err := s.MoveTo(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, moved, "a and b swap")

	_, moved, err = s.MoveTo(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, moved)

	_, moved, err = s.MoveAfter(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	_, moved, err = s.MoveAfter(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)

	_, moved, err = s.MoveAsChild(ctx, c.ID, &a.ID)
	require.NoError(t, err)
	assert.Zero(t, moved, "c is already a's last child")

	_, moved, err = s.MoveAsChild(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, layout(t, s)[0])
}

// TestMoveAsChild_RejectsDescendant tests the cycle pre-check on deep
// descendants.
func TestMoveAsChild_RejectsDescendant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", nil)
	b := mustCreate(t, s, "B", &a.ID)
	c := mustCreate(t, s, "C", &b.ID)

	_, _, err := s.MoveAsChild(ctx, a.ID, &c.ID)
	require.ErrorIs(t, err, tmerrors.ErrInvalidOrder)
	assert.Contains(t, err.Error(), "descendant")
	requireInvariants(t, s)
}

// TestReorder_RandomSequences tests that invariants hold under arbitrary
// valid and invalid operation sequences.
func TestReorder_RandomSequences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data

	var ids []int64
	pick := func() int64 { return ids[rng.Intn(len(ids))] }

	for step := 0; step < 300; step++ {
		if len(ids) < 3 {
			task := mustCreate(t, s, "seed", nil)
			ids = append(ids, task.ID)
			continue
		}

		switch rng.Intn(7) {
		case 0:
			parent := pick()
			task, err := s.Create(ctx, "child", &parent)
			require.NoError(t, err)
			ids = append(ids, task.ID)
		case 1:
			_, _, _ = s.MoveAsChild(ctx, pick(), domain.ID(pick()))
		case 2:
			_, _, _ = s.MoveAfter(ctx, pick(), pick())
		case 3:
			_, _, _ = s.MoveTo(ctx, pick(), rng.Intn(5))
		case 4:
			_, _ = s.SetCurrent(ctx, pick())
		case 5:
			_, _ = s.Reorder(ctx, []domain.Reorder{
				{ID: pick(), Position: rng.Intn(3), ParentID: domain.ID(pick())},
				{ID: pick(), Position: rng.Intn(3)},
			})
		case 6:
			removed, err := s.Delete(ctx, pick())
			require.NoError(t, err)
			gone := map[int64]bool{}
			for _, id := range removed {
				gone[id] = true
			}
			kept := ids[:0]
			for _, id := range ids {
				if !gone[id] {
					kept = append(kept, id)
				}
			}
			ids = kept
		}

		requireInvariants(t, s)
	}
}

// TestPlanReorder_OnlyChangedRows tests that the plan skips tasks already in place.
func TestPlanReorder_OnlyChangedRows(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Position: 0},
		{ID: 2, Position: 1},
		{ID: 3, Position: 2},
	}

	plan, err := planReorder(tasks, []domain.Reorder{{ID: 1, Position: 0}})
	require.NoError(t, err)
	assert.Empty(t, plan)

	plan, err = planReorder(tasks, []domain.Reorder{{ID: 3, Position: 1}})
	require.NoError(t, err)
	assert.Equal(t, map[int64]placement{
		3: {position: 1},
		2: {position: 2},
	}, plan)
}
