// Package tui renders taskmcp output for terminals: the task outline,
// workspace tables, markdown comments and confirmation prompts.
//
// All colors use AdaptiveColor for light/dark terminal support. Call
// CheckNoColor at the start of commands to respect NO_COLOR and TERM=dumb.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

//nolint:gochecknoglobals // package-level style API
var (
	// ColorPrimary is blue, used for the current task and headers.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for done tasks and success messages.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for ids and tree connectors.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleStrike marks done tasks.
	StyleStrike = lipgloss.NewStyle().Strikethrough(true).Foreground(ColorMuted)
)

// taskColors maps the layout color names a task can carry to terminal colors.
// Unknown names render uncolored.
//
//nolint:gochecknoglobals // fixed palette
var taskColors = map[string]lipgloss.AdaptiveColor{
	"red":    {Light: "#AF0000", Dark: "#FF5F5F"},
	"orange": {Light: "#AF5F00", Dark: "#FFAF5F"},
	"yellow": {Light: "#AF8700", Dark: "#FFD700"},
	"green":  {Light: "#008700", Dark: "#00FF87"},
	"blue":   {Light: "#0087AF", Dark: "#00D7FF"},
	"purple": {Light: "#5F00AF", Dark: "#AF87FF"},
	"pink":   {Light: "#AF005F", Dark: "#FF87D7"},
	"gray":   {Light: "#585858", Dark: "#8A8A8A"},
}

// TaskColorNames returns the color names understood by TaskColor, sorted.
func TaskColorNames() []string {
	return []string{"blue", "gray", "green", "orange", "pink", "purple", "red", "yellow"}
}

// TaskColor returns the terminal color for a layout color name.
func TaskColor(name string) (lipgloss.AdaptiveColor, bool) {
	c, ok := taskColors[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// OutputStyles contains styles for messages.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles returns the message styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// TableStyles contains styles for tables.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Active lipgloss.Style
}

// NewTableStyles returns the table styles.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		Cell:   lipgloss.NewStyle(),
		Active: lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess),
	}
}

// CheckNoColor disables colors when the environment asks for it.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false if NO_COLOR is set (any value, including
// empty) or TERM=dumb. See https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
