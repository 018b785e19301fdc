package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mrz1836/taskmcp/internal/domain"
)

// maxIndentDepth caps the drawn indentation. Deeper levels are drawn at
// this depth with their real depth shown in the line.
const maxIndentDepth = 32

// OutlineOptions controls RenderOutline.
type OutlineOptions struct {
	// Width truncates lines to this many cells. Zero disables truncation.
	Width int

	// Comments prints the first line of each task's comments under it.
	Comments bool
}

type outlineFrame struct {
	node   *domain.Node
	prefix string
	last   bool
	depth  int
}

// RenderOutline writes the forest as an indented tree:
//
//	├── [ ] #1 Plan
//	│   └── [x] #2 Draft ▶
//	└── [ ] #3 Ship
//
// The walk uses an explicit stack so arbitrarily deep forests render
// without growing the goroutine stack.
func RenderOutline(w io.Writer, forest []*domain.Node, opts OutlineOptions) error {
	CheckNoColor()

	stack := make([]outlineFrame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, outlineFrame{node: forest[i], last: i == len(forest)-1})
	}

	muted := lipgloss.NewStyle().Foreground(ColorMuted)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}

		connector := "├── "
		childPrefix := f.prefix + "│   "
		if f.last {
			connector = "└── "
			childPrefix = f.prefix + "    "
		}
		if f.depth >= maxIndentDepth {
			childPrefix = f.prefix
		}

		lead := f.prefix + connector
		width := 0
		if opts.Width > 0 {
			width = max(opts.Width-runewidth.StringWidth(lead), 1)
		}
		if _, err := fmt.Fprintln(w, muted.Render(lead)+taskLine(f.node.Task, f.depth, width)); err != nil {
			return err
		}

		if opts.Comments && strings.TrimSpace(f.node.Comments) != "" {
			first, _, _ := strings.Cut(strings.TrimSpace(f.node.Comments), "\n")
			if opts.Width > 0 {
				first = runewidth.Truncate(first, max(opts.Width-runewidth.StringWidth(childPrefix)-2, 1), "…")
			}
			if _, err := fmt.Fprintln(w, muted.Render(childPrefix+"  "+first)); err != nil {
				return err
			}
		}

		children := f.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, outlineFrame{
				node:   children[i],
				prefix: childPrefix,
				last:   i == len(children)-1,
				depth:  f.depth + 1,
			})
		}
	}
	return nil
}

// taskLine renders one task without its tree prefix. width <= 0 disables
// truncation of the title.
func taskLine(t domain.Task, depth, width int) string {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	id := fmt.Sprintf("#%d", t.ID)
	suffix := ""
	if t.IsCurrent {
		suffix = " ▶"
	}
	if depth >= maxIndentDepth {
		suffix += fmt.Sprintf(" (depth %d)", depth)
	}

	head := box + " " + id + " "
	title := t.Title
	if width > 0 {
		room := width - runewidth.StringWidth(head) - runewidth.StringWidth(suffix)
		title = runewidth.Truncate(title, max(room, 1), "…")
	}

	style := lipgloss.NewStyle()
	if c, ok := TaskColor(t.Layout.Color); ok {
		style = style.Foreground(c)
	}
	switch {
	case t.Done:
		style = StyleStrike
	case t.IsCurrent:
		style = style.Bold(true).Foreground(ColorPrimary)
	}

	return head + style.Render(title) + suffix
}

// WorkspaceRows returns table rows for a workspace list: name and an
// active marker.
func WorkspaceRows(list domain.WorkspaceList) [][]string {
	rows := make([][]string, 0, len(list.Names))
	for _, name := range list.Names {
		marker := ""
		if name == list.Active {
			marker = "*"
		}
		rows = append(rows, []string{name, marker})
	}
	return rows
}
