// Package errors provides centralized error handling for taskmcp.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrTaskNotFound indicates that a task id does not exist in the
	// workspace the operation ran against.
	ErrTaskNotFound = errors.New("task not found")

	// ErrWorkspaceNotFound indicates that the named workspace has no dataset.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrInvalidParent indicates that a create named a parent task that does
	// not exist.
	ErrInvalidParent = errors.New("invalid parent task")

	// ErrInvalidOrder indicates that a reorder or move was rejected: unknown
	// target, missing parent, a cycle, or an internally inconsistent position set.
	ErrInvalidOrder = errors.New("invalid task order")

	// ErrInvalidName indicates that a workspace name is empty or contains
	// characters outside [A-Za-z0-9_-].
	ErrInvalidName = errors.New("invalid workspace name")

	// ErrWorkspaceExists indicates an attempt to create or rename onto a
	// workspace name that is already taken.
	ErrWorkspaceExists = errors.New("workspace already exists")

	// ErrWorkspaceActive indicates an attempt to delete the active workspace.
	ErrWorkspaceActive = errors.New("workspace is active")

	// ErrWorkspaceCorrupted indicates that the active workspace record could
	// not be parsed.
	ErrWorkspaceCorrupted = errors.New("workspace record corrupted")

	// ErrStorageFailure indicates that the underlying dataset could not be
	// read or written.
	ErrStorageFailure = errors.New("storage failure")

	// ErrLockTimeout indicates that acquiring a file lock timed out.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrEmptyValue indicates that a required value (task title, search
	// query) was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidSnapshot indicates that an imported snapshot does not
	// describe a valid forest.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrStoreClosed indicates an operation on a task store after Close.
	ErrStoreClosed = errors.New("task store closed")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidServer indicates an invalid server configuration value.
	ErrConfigInvalidServer = errors.New("invalid server configuration")

	// ErrConfigInvalidStorage indicates an invalid storage configuration value.
	ErrConfigInvalidStorage = errors.New("invalid storage configuration")

	// ErrConfigInvalidNotify indicates an invalid notify configuration value.
	ErrConfigInvalidNotify = errors.New("invalid notify configuration")

	// ErrInvalidOutputFormat indicates an unsupported --output value.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrInvalidArgument indicates a malformed command-line argument, such as
	// a task id that is not a number.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOperationCanceled indicates that the user declined a confirmation.
	ErrOperationCanceled = errors.New("operation canceled")

	// ErrNonInteractiveMode indicates a confirmation was needed but no
	// terminal was attached and --force was not given.
	ErrNonInteractiveMode = errors.New("confirmation required in non-interactive mode")

	// ErrJSONErrorOutput is returned after a JSON error payload was already
	// written, so the caller exits non-zero without printing twice.
	ErrJSONErrorOutput = errors.New("json error output")
)

// IsNotFound reports whether err is either of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrWorkspaceNotFound)
}

// IsInvalidInput reports whether err was caused by caller input rather than
// by storage.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrInvalidParent, ErrInvalidOrder, ErrInvalidName, ErrEmptyValue,
		ErrInvalidSnapshot, ErrInvalidArgument, ErrInvalidOutputFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err describes a state conflict with an
// existing workspace.
func IsConflict(err error) bool {
	return errors.Is(err, ErrWorkspaceExists) || errors.Is(err, ErrWorkspaceActive)
}
