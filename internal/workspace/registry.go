package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskmcp/internal/clock"
	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/ctxutil"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/flock"
	"github.com/mrz1836/taskmcp/internal/taskstore"
)

// datasetSuffixes are the files SQLite may keep for one dataset.
var datasetSuffixes = []string{"", "-wal", "-shm"} //nolint:gochecknoglobals // fixed SQLite file set

// Options configures a Registry.
type Options struct {
	// LockTimeout bounds waiting for another process's lifecycle operation.
	LockTimeout time.Duration

	// BusyTimeout is passed to every opened dataset.
	BusyTimeout time.Duration

	// Active overrides the persisted active record store.
	Active ActiveStore

	// Clock stamps exported snapshots.
	Clock clock.Clock

	Logger zerolog.Logger
}

// Registry owns the workspace datasets under one home directory.
//
// Lifecycle operations (switch, create, delete, rename, import) are
// serialized by an in-process mutex and a cross-process file lock. Task
// operations run against the handle returned by Store or ActiveStore and
// are serialized by the task store itself.
type Registry struct {
	dir    string
	active ActiveStore
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	stores map[string]*handle
}

// handle is an open dataset plus the file identity it was opened against.
// Another process may rename, delete, or re-create the file underneath.
type handle struct {
	store *taskstore.Store
	info  os.FileInfo
}

// NewRegistry creates a Registry rooted at home. If home is empty,
// ~/.taskmcp is used.
func NewRegistry(home string, opts Options) (*Registry, error) {
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = filepath.Join(userHome, constants.AppHome)
	}

	dir := filepath.Join(home, constants.WorkspacesDir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, tmerrors.Storage(err, "failed to create workspaces directory")
	}

	if opts.LockTimeout <= 0 {
		opts.LockTimeout = constants.LockTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Active == nil {
		opts.Active = NewFileActiveStore(filepath.Join(dir, constants.ActiveRecordFileName))
	}

	r := &Registry{
		dir:    dir,
		active: opts.Active,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "workspace").Logger(),
		stores: map[string]*handle{},
	}

	if err := r.migrateLegacyRecord(home); err != nil {
		return nil, err
	}
	return r, nil
}

// migrateLegacyRecord moves an active record left in the home root by older
// layouts into the workspaces directory.
func (r *Registry) migrateLegacyRecord(home string) error {
	legacy := filepath.Join(home, constants.ActiveRecordFileName)
	target := filepath.Join(r.dir, constants.ActiveRecordFileName)

	if _, err := os.Stat(legacy); err != nil {
		return nil //nolint:nilerr // nothing to migrate
	}
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if err := os.Rename(legacy, target); err != nil {
		return tmerrors.Storage(err, "failed to migrate legacy workspace record")
	}
	r.logger.Info().Str("from", legacy).Msg("migrated legacy workspace record")
	return nil
}

// Dir returns the workspaces directory.
func (r *Registry) Dir() string {
	return r.dir
}

func (r *Registry) datasetPath(name string) string {
	return filepath.Join(r.dir, name+constants.DatasetExtension)
}

func (r *Registry) exists(name string) bool {
	_, err := os.Stat(r.datasetPath(name))
	return err == nil
}

// lock serializes a lifecycle operation in this process and across
// processes. The caller must call the returned release func.
func (r *Registry) lock(ctx context.Context) (func(), error) {
	r.mu.Lock()
	fl, err := flock.Acquire(ctx, filepath.Join(r.dir, constants.RegistryLockFileName), r.opts.LockTimeout)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to lock workspace registry: %w", err)
	}
	return func() {
		fl.Release()
		r.mu.Unlock()
	}, nil
}

// openLocked returns the cached handle for name, opening the dataset if
// needed. A cached handle is reused only while the file on disk is the one
// it was opened against. With create false a missing dataset is
// ErrWorkspaceNotFound. r.mu must be held.
func (r *Registry) openLocked(ctx context.Context, name string, create bool) (*taskstore.Store, error) {
	path := r.datasetPath(name)
	info, statErr := os.Stat(path)

	if h, ok := r.stores[name]; ok {
		if statErr == nil && os.SameFile(h.info, info) {
			return h.store, nil
		}
		r.logger.Debug().Str("workspace", name).Msg("dataset changed on disk, reopening")
		if err := r.closeLocked(name); err != nil {
			r.logger.Warn().Err(err).Str("workspace", name).Msg("failed to close stale dataset")
		}
	}
	if !create && statErr != nil {
		return nil, fmt.Errorf("workspace '%s': %w", name, tmerrors.ErrWorkspaceNotFound)
	}

	s, err := taskstore.Open(ctx, path, taskstore.Options{
		BusyTimeout: r.opts.BusyTimeout,
		Logger:      r.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace '%s': %w", name, err)
	}
	if info, err = os.Stat(path); err != nil {
		_ = s.Close()
		return nil, tmerrors.Storage(err, "failed to stat workspace dataset")
	}
	r.stores[name] = &handle{store: s, info: info}
	return s, nil
}

// closeLocked closes and forgets the cached handle for name. r.mu must be held.
func (r *Registry) closeLocked(name string) error {
	h, ok := r.stores[name]
	if !ok {
		return nil
	}
	delete(r.stores, name)
	return h.store.Close()
}

// activeLocked returns the active name, creating and recording the default
// workspace when nothing valid is recorded. r.mu and the file lock must be
// held.
func (r *Registry) activeLocked(ctx context.Context) (string, error) {
	name, ok, err := r.active.Get(ctx)
	if err != nil && !errors.Is(err, tmerrors.ErrWorkspaceCorrupted) {
		return "", err
	}
	if ok && r.exists(name) {
		return name, nil
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("resetting unreadable active workspace record")
	}

	fallback := constants.DefaultWorkspace
	if _, err := r.openLocked(ctx, fallback, true); err != nil {
		return "", err
	}
	if err := r.active.Set(ctx, fallback); err != nil {
		return "", err
	}
	r.logger.Info().Str("workspace", fallback).Msg("activated default workspace")
	return fallback, nil
}

// Active returns the name of the active workspace, bootstrapping the
// default workspace on first use.
func (r *Registry) Active(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	name, ok, err := r.active.Get(ctx)
	if err == nil && ok && r.exists(name) {
		return name, nil
	}

	release, err := r.lock(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return r.activeLocked(ctx)
}

// List returns every workspace name, sorted, plus the active name.
func (r *Registry) List(ctx context.Context) (domain.WorkspaceList, error) {
	active, err := r.Active(ctx)
	if err != nil {
		return domain.WorkspaceList{}, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return domain.WorkspaceList{}, tmerrors.Storage(err, "failed to list workspaces")
	}

	names := []string{}
	seenActive := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), constants.DatasetExtension) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), constants.DatasetExtension)
		if validateName(name) != nil {
			continue
		}
		names = append(names, name)
		seenActive = seenActive || name == active
	}
	if !seenActive {
		names = append(names, active)
	}
	sort.Strings(names)

	return domain.WorkspaceList{Names: names, Active: active}, nil
}

// Store returns the open dataset of a named workspace.
func (r *Registry) Store(ctx context.Context, name string) (*taskstore.Store, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(ctx, name, false)
}

// ActiveStore returns the active workspace's name and open dataset.
// A rename by another process that lands between reading the record and
// opening the dataset is retried once against the new record.
func (r *Registry) ActiveStore(ctx context.Context) (string, *taskstore.Store, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		name, err := r.Active(ctx)
		if err != nil {
			return "", nil, err
		}

		r.mu.Lock()
		// In-process renames hold r.mu, so the record read here agrees
		// with the datasets on disk.
		if current, ok, getErr := r.active.Get(ctx); getErr == nil && ok {
			name = current
		}
		s, err := r.openLocked(ctx, name, false)
		r.mu.Unlock()
		if err == nil {
			return name, s, nil
		}
		if !errors.Is(err, tmerrors.ErrWorkspaceNotFound) {
			return "", nil, err
		}
		lastErr = err
	}
	return "", nil, lastErr
}

// Switch makes name the active workspace, creating an empty dataset first
// when it does not exist. changed is false when name was already active.
func (r *Registry) Switch(ctx context.Context, name string) (changed, created bool, err error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, false, err
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return false, false, fmt.Errorf("failed to switch workspace: %w", err)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return false, false, err
	}
	defer release()

	current, err := r.activeLocked(ctx)
	if err != nil {
		return false, false, err
	}

	created = !r.exists(name)
	if _, err := r.openLocked(ctx, name, true); err != nil {
		return false, false, err
	}
	if current == name {
		return false, created, nil
	}

	if err := r.active.Set(ctx, name); err != nil {
		return false, created, fmt.Errorf("failed to switch workspace '%s': %w", name, err)
	}

	r.logger.Info().Str("from", current).Str("to", name).Bool("created", created).Msg("workspace switched")
	return true, created, nil
}

// Create adds an empty workspace without activating it.
func (r *Registry) Create(ctx context.Context, name string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if r.exists(name) {
		return fmt.Errorf("failed to create workspace '%s': %w", name, tmerrors.ErrWorkspaceExists)
	}
	if _, err := r.openLocked(ctx, name, true); err != nil {
		return err
	}

	r.logger.Info().Str("workspace", name).Msg("workspace created")
	return nil
}

// Delete removes a workspace's dataset. The active workspace cannot be
// deleted.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	active, err := r.activeLocked(ctx)
	if err != nil {
		return err
	}
	if name == active {
		return fmt.Errorf("failed to delete workspace '%s': %w", name, tmerrors.ErrWorkspaceActive)
	}
	if !r.exists(name) {
		return fmt.Errorf("failed to delete workspace '%s': %w", name, tmerrors.ErrWorkspaceNotFound)
	}

	if err := r.closeLocked(name); err != nil {
		return err
	}
	if err := r.removeDataset(name); err != nil {
		return err
	}

	r.logger.Info().Str("workspace", name).Msg("workspace deleted")
	return nil
}

func (r *Registry) removeDataset(name string) error {
	base := r.datasetPath(name)
	for _, suffix := range datasetSuffixes {
		if err := os.Remove(base + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return tmerrors.Storage(err, "failed to remove workspace dataset")
		}
	}
	return nil
}

func (r *Registry) moveDataset(from, to string) error {
	src, dst := r.datasetPath(from), r.datasetPath(to)
	for _, suffix := range datasetSuffixes {
		if _, err := os.Stat(src + suffix); err != nil {
			continue
		}
		if err := os.Rename(src+suffix, dst+suffix); err != nil {
			return tmerrors.Storage(err, "failed to rename workspace dataset")
		}
	}
	return nil
}

// Rename moves a workspace's dataset to a new name. Renaming the active
// workspace rewrites the active record before the lock is released; if
// that write fails the dataset is moved back.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	if err := validateName(oldName); err != nil {
		return fmt.Errorf("failed to rename workspace: %w", err)
	}
	if err := validateName(newName); err != nil {
		return fmt.Errorf("failed to rename workspace: %w", err)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	active, err := r.activeLocked(ctx)
	if err != nil {
		return err
	}
	if !r.exists(oldName) {
		return fmt.Errorf("failed to rename workspace '%s': %w", oldName, tmerrors.ErrWorkspaceNotFound)
	}
	if oldName == newName {
		return nil
	}
	if r.exists(newName) {
		return fmt.Errorf("failed to rename workspace to '%s': %w", newName, tmerrors.ErrWorkspaceExists)
	}

	if err := r.closeLocked(oldName); err != nil {
		return err
	}
	if err := r.moveDataset(oldName, newName); err != nil {
		return err
	}

	if oldName == active {
		if err := r.active.Set(ctx, newName); err != nil {
			if rbErr := r.moveDataset(newName, oldName); rbErr != nil {
				r.logger.Error().Err(rbErr).Str("workspace", oldName).Msg("failed to roll back workspace rename")
			}
			return fmt.Errorf("failed to rename active workspace '%s': %w", oldName, err)
		}
	}

	r.logger.Info().Str("from", oldName).Str("to", newName).Bool("active", oldName == active).Msg("workspace renamed")
	return nil
}

// Export snapshots a workspace's forest.
func (r *Registry) Export(ctx context.Context, name string) (domain.Snapshot, error) {
	s, err := r.Store(ctx, name)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap, err := s.Export(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to export workspace '%s': %w", name, err)
	}
	snap.Workspace = name
	snap.ExportedAt = r.opts.Clock.Now()
	return snap, nil
}

// Import creates a workspace from a snapshot. A failed import leaves no
// dataset behind.
func (r *Registry) Import(ctx context.Context, name string, snap domain.Snapshot) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return fmt.Errorf("failed to import workspace: %w", err)
	}

	release, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if r.exists(name) {
		return fmt.Errorf("failed to import workspace '%s': %w", name, tmerrors.ErrWorkspaceExists)
	}

	s, err := r.openLocked(ctx, name, true)
	if err != nil {
		return err
	}
	if err := s.Import(ctx, snap); err != nil {
		_ = r.closeLocked(name)
		_ = r.removeDataset(name)
		return fmt.Errorf("failed to import workspace '%s': %w", name, err)
	}

	r.logger.Info().Str("workspace", name).Int("tasks", len(snap.Tasks)).Msg("workspace imported")
	return nil
}

// Close closes every open dataset.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name := range r.stores {
		if err := r.closeLocked(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
