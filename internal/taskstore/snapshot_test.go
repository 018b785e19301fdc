package taskstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

// TestExportImport tests copying a forest into a fresh dataset.
func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	a := mustCreate(t, src, "A", nil)
	b := mustCreate(t, src, "B", &a.ID)
	mustCreate(t, src, "C", &a.ID)
	_, err := src.SetCurrent(ctx, b.ID)
	require.NoError(t, err)

	snap, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 3)
	require.NotNil(t, snap.CurrentID)
	assert.Equal(t, b.ID, *snap.CurrentID)

	dst := newTestStore(t)
	require.NoError(t, dst.Import(ctx, snap))

	want, err := src.Tasks(ctx)
	require.NoError(t, err)
	got, err := dst.Tasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	next := mustCreate(t, dst, "D", nil)
	assert.Greater(t, next.ID, b.ID, "imported ids are never reused")

	err = dst.Import(ctx, snap)
	require.ErrorIs(t, err, tmerrors.ErrInvalidSnapshot, "import only targets an empty dataset")
}

// TestImport_Normalizes tests that sparse snapshot positions become dense.
func TestImport_Normalizes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Import(ctx, domain.Snapshot{Tasks: []domain.Task{
		{ID: 10, Title: "late", Position: 40},
		{ID: 11, Title: "early", Position: 3},
		{ID: 12, Title: "kid", ParentID: domain.ID(10), Position: 7},
	}})
	require.NoError(t, err)

	l := layout(t, s)
	assert.Equal(t, []int64{11, 10}, l[0])
	assert.Equal(t, []int64{12}, l[10])
	requireInvariants(t, s)

	kid, err := s.Get(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 240, kid.Layout.BoardWidth)
	assert.Equal(t, "compact", kid.Layout.ChildCommentDisplay)
}

// TestImport_Invalid tests snapshot validation.
func TestImport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		snap domain.Snapshot
	}{
		{"duplicate id", domain.Snapshot{Tasks: []domain.Task{{ID: 1, Title: "a"}, {ID: 1, Title: "b"}}}},
		{"zero id", domain.Snapshot{Tasks: []domain.Task{{ID: 0, Title: "a"}}}},
		{"missing parent", domain.Snapshot{Tasks: []domain.Task{{ID: 1, Title: "a", ParentID: domain.ID(5)}}}},
		{"cycle", domain.Snapshot{Tasks: []domain.Task{
			{ID: 1, Title: "a", ParentID: domain.ID(2)},
			{ID: 2, Title: "b", ParentID: domain.ID(1)},
		}}},
		{"missing current", domain.Snapshot{CurrentID: domain.ID(9), Tasks: []domain.Task{{ID: 1, Title: "a"}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.Import(context.Background(), tc.snap)
			require.ErrorIs(t, err, tmerrors.ErrInvalidSnapshot)

			tasks, err := s.Tasks(context.Background())
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}
