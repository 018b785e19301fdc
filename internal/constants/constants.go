// Package constants provides centralized constant values used throughout taskmcp.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by taskmcp for organizing data.
const (
	// AppHome is the hidden directory name where taskmcp stores all its data.
	// This directory is created in the user's home directory.
	AppHome = ".taskmcp"

	// WorkspacesDir is the directory name where workspace datasets are stored.
	WorkspacesDir = "workspaces"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Workspace defaults.
const (
	// DefaultWorkspace is the workspace created and activated on first use.
	DefaultWorkspace = "default"

	// MaxWorkspaceNameLength bounds workspace names so they stay valid file names.
	MaxWorkspaceNameLength = 255
)

// Task layout defaults applied when a task is created.
const (
	// DefaultBoardWidth is the board card width of a new task.
	DefaultBoardWidth = 240

	// DefaultBoardHeight is the board card height of a new task.
	DefaultBoardHeight = 100

	// DefaultChildLayout is how a new task lays out its children.
	DefaultChildLayout = "vertical"

	// DefaultChildCommentDisplay is how a new task shows its children's comments.
	DefaultChildCommentDisplay = "compact"
)

// Lock and timeout configuration.
const (
	// LockTimeout is the default maximum time to wait for a file lock.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the pause between non-blocking lock attempts.
	LockRetryInterval = 50 * time.Millisecond

	// SQLiteBusyTimeout is how long SQLite waits on a locked database.
	SQLiteBusyTimeout = 5 * time.Second

	// StoreReopenAttempts bounds how often a task operation re-resolves a
	// store closed underneath it by a concurrent rename.
	StoreReopenAttempts = 3

	// NotifyTimeout bounds a best-effort remote change nudge.
	NotifyTimeout = 500 * time.Millisecond

	// KeepaliveInterval is how often idle observer streams are pinged.
	KeepaliveInterval = 25 * time.Second

	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout = 5 * time.Second

	// ReadHeaderTimeout bounds reading request headers.
	ReadHeaderTimeout = 10 * time.Second
)

// Server defaults.
const (
	// DefaultHost is the interface the HTTP server binds to.
	DefaultHost = "localhost"

	// DefaultPort is the HTTP server port.
	DefaultPort = 5000

	// DefaultSearchParallelism bounds concurrent per-workspace searches.
	DefaultSearchParallelism = 4
)
