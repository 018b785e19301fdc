// Package testutil provides fixtures shared by taskmcp test files.
//
// It should only be imported by test files (*_test.go) of packages above
// workspace in the import graph.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/domain"
	"github.com/mrz1836/taskmcp/internal/workspace"
)

// NewRegistry opens a workspace registry in a fresh temp home and closes it
// when the test ends.
func NewRegistry(t *testing.T) *workspace.Registry {
	t.Helper()
	reg, err := workspace.NewRegistry(t.TempDir(), workspace.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

// Recorder is a notifier that remembers every published kind.
type Recorder struct {
	mu    sync.Mutex
	kinds []domain.EventKind
}

// Publish records kind.
func (r *Recorder) Publish(_ context.Context, kind domain.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

// Take returns the kinds recorded since the last call and resets the log.
func (r *Recorder) Take() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.kinds
	r.kinds = nil
	return out
}
