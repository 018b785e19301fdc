package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice keeps lookup order stable for wrapped errors.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{
		err: ErrTaskNotFound,
		info: ErrorInfo{
			Message: "Task not found in the active workspace.",
			Action:  "Run 'taskmcp task list' to see the task ids of the active workspace.",
		},
	},
	{
		err: ErrWorkspaceNotFound,
		info: ErrorInfo{
			Message: "Workspace not found.",
			Action:  "Run 'taskmcp workspace list' to see available workspaces.",
		},
	},
	{
		err: ErrInvalidParent,
		info: ErrorInfo{
			Message: "The parent task does not exist.",
			Action:  "Create the task at the root or pick an existing parent id.",
		},
	},
	{
		err: ErrInvalidOrder,
		info: ErrorInfo{
			Message: "The requested order was rejected and nothing was changed.",
			Action:  "Re-read the task tree and retry with a consistent set of positions.",
		},
	},
	{
		err: ErrInvalidName,
		info: ErrorInfo{
			Message: "Workspace names may only contain letters, digits, '-' and '_'.",
		},
	},
	{
		err: ErrWorkspaceExists,
		info: ErrorInfo{
			Message: "A workspace with that name already exists.",
			Action:  "Choose another name or switch to the existing workspace.",
		},
	},
	{
		err: ErrWorkspaceActive,
		info: ErrorInfo{
			Message: "The active workspace cannot be deleted.",
			Action:  "Switch to another workspace first with 'taskmcp workspace switch'.",
		},
	},
	{
		err: ErrWorkspaceCorrupted,
		info: ErrorInfo{
			Message: "The active workspace record is unreadable.",
			Action:  "Run 'taskmcp workspace switch <name>' to rewrite it.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Timed out waiting for another taskmcp process.",
			Action:  "Retry in a moment.",
		},
	},
	{
		err: ErrStorageFailure,
		info: ErrorInfo{
			Message: "The workspace dataset could not be read or written.",
			Action:  "Check disk space and permissions of the taskmcp home directory.",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "Confirmation required but no terminal is attached.",
			Action:  "Re-run with --force.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
