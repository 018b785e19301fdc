package domain

import "time"

// WorkspaceList is the registry's view of all workspaces.
type WorkspaceList struct {
	// Names is sorted and always contains Active.
	Names []string `json:"workspaces"`

	// Active names the workspace every task operation resolves against.
	Active string `json:"current"`
}

// ActiveRecord is the persisted pointer to the active workspace.
//
//	{"current_workspace": "default"}
type ActiveRecord struct {
	CurrentWorkspace string `json:"current_workspace"`
}

// Snapshot is a portable copy of one workspace's forest, used for
// export and for creating a workspace from migration data.
type Snapshot struct {
	Workspace  string    `yaml:"workspace" toml:"workspace"`
	ExportedAt time.Time `yaml:"exported_at" toml:"exported_at"`
	CurrentID  *int64    `yaml:"current_id,omitempty" toml:"current_id,omitempty"`
	Tasks      []Task    `yaml:"tasks" toml:"tasks"`
}

// SearchHit is one match of a cross-workspace search.
type SearchHit struct {
	Workspace string `json:"workspace"`
	Task      Task   `json:"task"`
}
