// Package logging provides zerolog helpers shared by the taskmcp binaries:
// redaction of secrets that users paste into task titles and comments, and
// width-bounded field values.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// MaxFieldWidth is the display width a free-text log field is cut to.
const MaxFieldWidth = 80

// sensitivePatterns match credential formats commonly pasted into notes.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once
	regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?([a-zA-Z0-9_-]{16,})["']?`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),
	regexp.MustCompile(`(?i)(secret|password|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
	regexp.MustCompile(`(?i)-----BEGIN[A-Z\s]+PRIVATE KEY-----`),
	regexp.MustCompile(`[^/\s:@]+:[^/\s@]+@`),
}

// sensitiveFieldNames are field names whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // fixed list
	"api_key",
	"apikey",
	"token",
	"password",
	"secret",
	"credential",
	"private_key",
	"authorization",
}

// SensitiveDataHook is a zerolog hook that flags log entries whose message
// contains sensitive data. zerolog does not let hooks rewrite fields, so the
// actual redaction happens in FilteringWriter and SafeValue.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any sensitive pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every sensitive match in value with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName reports whether a field name indicates sensitive data.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SafeValue returns value ready for a log field: fully redacted when the
// field name is sensitive, otherwise filtered and cut to MaxFieldWidth.
//
//	log.Debug().Str("title", logging.SafeValue("title", task.Title)).Msg("task created")
func SafeValue(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return Truncate(FilterSensitiveValue(value), MaxFieldWidth)
}

// Truncate cuts s to at most width terminal cells, appending "…" when it
// had to cut. Wide runes count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// FilteringWriter wraps an io.Writer and redacts sensitive data from
// everything written through it. The log file writer is wrapped with it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter around w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers do
// not see a short write when redaction changed the length.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err = fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
