package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWrapWidth is the wrap width for rendered comments.
const DefaultWrapWidth = 80

//nolint:gochecknoglobals // cached renderers, one per wrap width
var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// markdownRenderer returns a cached glamour renderer for width, or nil when
// one cannot be built.
func markdownRenderer(width int) *glamour.TermRenderer {
	renderersMu.Lock()
	defer renderersMu.Unlock()

	if r, ok := renderers[width]; ok {
		return r
	}

	styleOpt := glamour.WithAutoStyle()
	if !HasColorSupport() {
		styleOpt = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		r = nil
	}
	renderers[width] = r
	return r
}

// RenderMarkdown writes task comments as rendered markdown, indented by two
// spaces. It falls back to the plain text when rendering fails.
func RenderMarkdown(w io.Writer, text string, width int) {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	if r := markdownRenderer(width); r != nil {
		if rendered, err := r.Render(text); err == nil {
			for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
				_, _ = fmt.Fprintf(w, "  %s\n", line)
			}
			return
		}
	}
	for _, line := range strings.Split(text, "\n") {
		_, _ = fmt.Fprintf(w, "  %s\n", line)
	}
}
