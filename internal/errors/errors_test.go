package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

// testError is a custom error type used to hit the default branch of
// UserMessage without matching any sentinel.
type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	all := []error{
		tmerrors.ErrTaskNotFound,
		tmerrors.ErrWorkspaceNotFound,
		tmerrors.ErrInvalidParent,
		tmerrors.ErrInvalidOrder,
		tmerrors.ErrInvalidName,
		tmerrors.ErrWorkspaceExists,
		tmerrors.ErrWorkspaceActive,
		tmerrors.ErrStorageFailure,
		tmerrors.ErrLockTimeout,
		tmerrors.ErrEmptyValue,
	}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "%v should not match %v", a, b)
		}
	}
}

// TestWrap tests that Wrap preserves the chain and tolerates nil.
func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, tmerrors.Wrap(nil, "context"))
		require.NoError(t, tmerrors.Wrapf(nil, "context %d", 1))
	})

	t.Run("chain preserved", func(t *testing.T) {
		err := tmerrors.Wrapf(tmerrors.ErrTaskNotFound, "failed to edit task %d", 7)
		require.ErrorIs(t, err, tmerrors.ErrTaskNotFound)
		assert.Equal(t, "failed to edit task 7: task not found", err.Error())
	})
}

// TestStorage tests that Storage classifies the cause as a storage failure.
func TestStorage(t *testing.T) {
	cause := errors.New("disk I/O error") //nolint:err113 // test fixture
	err := tmerrors.Storage(cause, "failed to commit")

	require.ErrorIs(t, err, tmerrors.ErrStorageFailure)
	require.ErrorIs(t, err, cause)
	require.NoError(t, tmerrors.Storage(nil, "noop"))
}

// TestClassifiers tests the grouping helpers used by the transports.
func TestClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		invalid  bool
		conflict bool
	}{
		{"task not found", tmerrors.ErrTaskNotFound, true, false, false},
		{"workspace not found", fmt.Errorf("x: %w", tmerrors.ErrWorkspaceNotFound), true, false, false},
		{"invalid order", tmerrors.ErrInvalidOrder, false, true, false},
		{"invalid parent", tmerrors.ErrInvalidParent, false, true, false},
		{"exists", tmerrors.ErrWorkspaceExists, false, false, true},
		{"active", tmerrors.ErrWorkspaceActive, false, false, true},
		{"storage", tmerrors.ErrStorageFailure, false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.notFound, tmerrors.IsNotFound(tc.err))
			assert.Equal(t, tc.invalid, tmerrors.IsInvalidInput(tc.err))
			assert.Equal(t, tc.conflict, tmerrors.IsConflict(tc.err))
		})
	}
}

// TestActionable tests user-facing message lookup for wrapped errors.
func TestActionable(t *testing.T) {
	msg, action := tmerrors.Actionable(fmt.Errorf("delete: %w", tmerrors.ErrWorkspaceActive))
	assert.Contains(t, msg, "active workspace")
	assert.Contains(t, action, "workspace switch")

	msg, action = tmerrors.Actionable(testError{msg: "something odd"})
	assert.Equal(t, "something odd", msg)
	assert.Empty(t, action)

	assert.Empty(t, tmerrors.UserMessage(nil))
}
