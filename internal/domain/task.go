// Package domain provides the shared types of the taskmcp task tree engine.
package domain

// Task is one node of a workspace's task forest.
//
// Example JSON representation:
//
//	{
//	    "id": 12,
//	    "title": "Write release notes",
//	    "done": false,
//	    "parent_id": 3,
//	    "position": 0,
//	    "comments": "- mention the **new** reorder API",
//	    "is_current": true,
//	    "layout": {"color": "#ffcc00", "child_layout": "vertical", ...}
//	}
type Task struct {
	// ID is assigned by storage on creation and never reused.
	ID int64 `json:"id" yaml:"id" toml:"id"`

	// Title is the short task text.
	Title string `json:"title" yaml:"title" toml:"title"`

	// Done marks the task complete. Toggling it never touches descendants.
	Done bool `json:"done" yaml:"done" toml:"done,omitempty"`

	// ParentID is nil for root tasks.
	ParentID *int64 `json:"parent_id" yaml:"parent_id,omitempty" toml:"parent_id,omitempty"`

	// Position orders the task among its siblings, dense from 0.
	Position int `json:"position" yaml:"position" toml:"position"`

	// Comments is free-form markdown.
	Comments string `json:"comments" yaml:"comments,omitempty" toml:"comments,omitempty"`

	// IsCurrent is derived from the workspace's current-task record.
	IsCurrent bool `json:"is_current" yaml:"-" toml:"-"`

	// Layout carries presentation hints stored and returned unchanged.
	Layout Layout `json:"layout" yaml:"layout" toml:"layout"`
}

// HasParent reports whether the task is a child of parentID (nil = root).
func (t Task) HasParent(parentID *int64) bool {
	return SameParent(t.ParentID, parentID)
}

// SameParent compares two optional parent ids.
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParentKey maps an optional parent id to a map key; roots use 0 since
// storage never assigns id 0.
func ParentKey(parentID *int64) int64 {
	if parentID == nil {
		return 0
	}
	return *parentID
}

// ID returns a pointer to id, for building optional parent references.
func ID(id int64) *int64 {
	return &id
}

// Layout holds opaque presentation hints for board and outline views.
type Layout struct {
	Color               string `json:"color" yaml:"color,omitempty" toml:"color,omitempty"`
	ChildLayout         string `json:"child_layout" yaml:"child_layout,omitempty" toml:"child_layout,omitempty"`
	ChildCommentDisplay string `json:"child_comment_display" yaml:"child_comment_display,omitempty" toml:"child_comment_display,omitempty"`
	BoardX              *int   `json:"board_x" yaml:"board_x,omitempty" toml:"board_x,omitempty"`
	BoardY              *int   `json:"board_y" yaml:"board_y,omitempty" toml:"board_y,omitempty"`
	BoardWidth          int    `json:"board_width" yaml:"board_width,omitempty" toml:"board_width,omitempty"`
	BoardHeight         int    `json:"board_height" yaml:"board_height,omitempty" toml:"board_height,omitempty"`
}

// LayoutPatch is a partial Layout update; nil fields are left unchanged.
// An empty Color string clears the color.
type LayoutPatch struct {
	Color               *string `json:"color,omitempty"`
	ChildLayout         *string `json:"child_layout,omitempty"`
	ChildCommentDisplay *string `json:"child_comment_display,omitempty"`
	BoardX              *int    `json:"board_x,omitempty"`
	BoardY              *int    `json:"board_y,omitempty"`
	BoardWidth          *int    `json:"board_width,omitempty"`
	BoardHeight         *int    `json:"board_height,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p LayoutPatch) IsEmpty() bool {
	return p.Color == nil && p.ChildLayout == nil && p.ChildCommentDisplay == nil &&
		p.BoardX == nil && p.BoardY == nil && p.BoardWidth == nil && p.BoardHeight == nil
}

// Apply returns l with the patch applied.
func (p LayoutPatch) Apply(l Layout) Layout {
	if p.Color != nil {
		l.Color = *p.Color
	}
	if p.ChildLayout != nil {
		l.ChildLayout = *p.ChildLayout
	}
	if p.ChildCommentDisplay != nil {
		l.ChildCommentDisplay = *p.ChildCommentDisplay
	}
	if p.BoardX != nil {
		l.BoardX = p.BoardX
	}
	if p.BoardY != nil {
		l.BoardY = p.BoardY
	}
	if p.BoardWidth != nil {
		l.BoardWidth = *p.BoardWidth
	}
	if p.BoardHeight != nil {
		l.BoardHeight = *p.BoardHeight
	}
	return l
}

// NewTask describes a task to insert.
type NewTask struct {
	Title    string
	ParentID *int64

	// Position among the new siblings; negative or out of range appends.
	Position int

	// Color is the initial display color, empty for none.
	Color string
}

// EditInput is a partial edit of a task's text fields.
type EditInput struct {
	Title    *string `json:"title,omitempty"`
	Comments *string `json:"comments,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (e EditInput) IsEmpty() bool {
	return e.Title == nil && e.Comments == nil
}

// Reorder places one task at Position under ParentID.
type Reorder struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	ParentID *int64 `json:"parent_id"`
}

// Node is a task with its children in display order.
type Node struct {
	Task
	Children []*Node `json:"children"`
}
