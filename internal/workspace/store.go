// Package workspace manages the set of isolated workspace datasets and the
// persisted pointer to the active one.
//
// Each workspace is one SQLite dataset, <home>/workspaces/<name>.db. The
// active pointer is a small JSON record written atomically under a file
// lock, so it always names a workspace whose dataset exists.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/ctxutil"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// validNameRegex matches valid workspace names.
var validNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ActiveStore persists the name of the active workspace.
type ActiveStore interface {
	// Get returns the recorded name. ok is false when nothing is recorded.
	Get(ctx context.Context) (name string, ok bool, err error)

	// Set records name as active.
	Set(ctx context.Context, name string) error
}

// FileActiveStore keeps the active record as JSON in a single file.
type FileActiveStore struct {
	path string
}

// NewFileActiveStore creates a FileActiveStore backed by path.
func NewFileActiveStore(path string) *FileActiveStore {
	return &FileActiveStore{path: path}
}

// Get reads the active record. A missing file is not an error.
func (s *FileActiveStore) Get(ctx context.Context) (string, bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(s.path) //#nosec G304 -- path is constructed internally
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, tmerrors.Storage(err, "failed to read active workspace record")
	}

	var rec domain.ActiveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("failed to parse active workspace record: %w", tmerrors.ErrWorkspaceCorrupted)
	}
	if validateName(rec.CurrentWorkspace) != nil {
		return "", false, fmt.Errorf("active workspace record names %q: %w", rec.CurrentWorkspace, tmerrors.ErrWorkspaceCorrupted)
	}
	return rec.CurrentWorkspace, true, nil
}

// Set replaces the active record atomically. Readers observe either the
// previous or the new record, never a partial one.
func (s *FileActiveStore) Set(ctx context.Context, name string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(domain.ActiveRecord{CurrentWorkspace: name}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal active workspace record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return tmerrors.Storage(err, "failed to create workspace directory")
	}
	if err := atomicWrite(s.path, data, filePerm); err != nil {
		return tmerrors.Storage(err, "failed to write active workspace record")
	}
	return nil
}

// validateName checks if a workspace name is valid.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("workspace name cannot be empty: %w", tmerrors.ErrInvalidName)
	}
	if len(name) > constants.MaxWorkspaceNameLength {
		return fmt.Errorf("workspace name too long (max %d characters): %w", constants.MaxWorkspaceNameLength, tmerrors.ErrInvalidName)
	}
	if !validNameRegex.MatchString(name) {
		return fmt.Errorf("workspace name %q may only use letters, digits, '-' and '_': %w", name, tmerrors.ErrInvalidName)
	}
	return nil
}

// ValidateName reports whether name can be used as a workspace name.
func ValidateName(name string) error {
	return validateName(strings.TrimSpace(name))
}

// atomicWrite writes data to a file atomically using write-then-rename.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Data must be on disk before the rename makes it visible.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
