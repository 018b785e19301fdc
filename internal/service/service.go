// Package service is the read/write contract observers and agents use. It
// resolves the active workspace, runs the mutation against its task store,
// and publishes a change event only after the mutation succeeded.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/ctxutil"
	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/notify"
	"github.com/mrz1836/taskmcp/internal/taskstore"
	"github.com/mrz1836/taskmcp/internal/tree"
	"github.com/mrz1836/taskmcp/internal/workspace"
)

// Options configures a Service.
type Options struct {
	// SearchParallelism bounds concurrent per-workspace searches.
	SearchParallelism int

	Logger zerolog.Logger
}

// Service runs task and workspace operations.
type Service struct {
	registry *workspace.Registry
	notifier notify.Notifier
	parallel int
	logger   zerolog.Logger
}

// New creates a Service. A nil notifier discards events.
func New(registry *workspace.Registry, notifier notify.Notifier, opts Options) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if opts.SearchParallelism <= 0 {
		opts.SearchParallelism = constants.DefaultSearchParallelism
	}
	return &Service{
		registry: registry,
		notifier: notifier,
		parallel: opts.SearchParallelism,
		logger:   opts.Logger.With().Str("component", "service").Logger(),
	}
}

// publish announces kinds after a committed mutation. The caller's
// cancellation must not suppress the nudge.
func (s *Service) publish(ctx context.Context, kinds ...domain.EventKind) {
	ctx = context.WithoutCancel(ctx)
	for _, k := range kinds {
		s.notifier.Publish(ctx, k)
	}
}

// active resolves the store every task operation runs against.
func (s *Service) active(ctx context.Context) (string, *taskstore.Store, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", nil, err
	}
	return s.registry.ActiveStore(ctx)
}

// onActive runs fn against the active workspace's store. A store closed
// underneath fn by a rename or a reopen is resolved again, at most
// StoreReopenAttempts times. A closed store rejects fn before any write.
func onActive[T any](ctx context.Context, s *Service, fn func(st *taskstore.Store) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= constants.StoreReopenAttempts; attempt++ {
		var st *taskstore.Store
		if _, st, err = s.active(ctx); err != nil {
			return out, err
		}
		out, err = fn(st)
		if !errors.Is(err, tmerrors.ErrStoreClosed) {
			return out, err
		}
		s.logger.Debug().Int("attempt", attempt).Msg("task store closed during operation, resolving again")
	}
	return out, err
}

// Tasks returns the active workspace's nested forest with the current flag.
func (s *Service) Tasks(ctx context.Context) ([]*domain.Node, error) {
	tasks, err := onActive(ctx, s, func(st *taskstore.Store) ([]domain.Task, error) {
		return st.Tasks(ctx)
	})
	if err != nil {
		return nil, err
	}
	return tree.Build(tasks), nil
}

// FocusTasks returns a single-element forest rooted at id, or an empty
// forest when id does not exist.
func (s *Service) FocusTasks(ctx context.Context, id int64) ([]*domain.Node, error) {
	forest, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Focus(forest, id), nil
}

// GetTask returns one task of the active workspace.
func (s *Service) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return onActive(ctx, s, func(st *taskstore.Store) (domain.Task, error) {
		return st.Get(ctx, id)
	})
}

// CreateInput describes a new task.
type CreateInput struct {
	Title    string `json:"title"`
	ParentID *int64 `json:"parent_id"`

	// Position inserts at an explicit sibling position; nil appends.
	Position *int `json:"position,omitempty"`

	// Color sets the initial display color.
	Color string `json:"color,omitempty"`
}

// CreateTask adds a task to the active workspace.
func (s *Service) CreateTask(ctx context.Context, in CreateInput) (domain.Task, error) {
	nt := domain.NewTask{Title: in.Title, ParentID: in.ParentID, Position: -1, Color: in.Color}
	if in.Position != nil {
		nt.Position = *in.Position
	}
	t, err := onActive(ctx, s, func(st *taskstore.Store) (domain.Task, error) {
		return st.CreateAt(ctx, nt)
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.publish(ctx, domain.EventTasksChanged)
	return t, nil
}

// EditTask updates a task's title and comments. An empty edit changes
// nothing and publishes nothing.
func (s *Service) EditTask(ctx context.Context, id int64, in domain.EditInput) (domain.Task, error) {
	if in.IsEmpty() {
		return s.GetTask(ctx, id)
	}

	t, err := onActive(ctx, s, func(st *taskstore.Store) (domain.Task, error) {
		return st.Edit(ctx, id, in)
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.publish(ctx, domain.EventTasksChanged)
	return t, nil
}

// ToggleTask flips a task's done flag.
func (s *Service) ToggleTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := onActive(ctx, s, func(st *taskstore.Store) (domain.Task, error) {
		return st.ToggleDone(ctx, id)
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.publish(ctx, domain.EventTasksChanged)
	return t, nil
}

// UpdateLayout applies presentation hints to a task.
func (s *Service) UpdateLayout(ctx context.Context, id int64, patch domain.LayoutPatch) (domain.Task, error) {
	if patch.IsEmpty() {
		return s.GetTask(ctx, id)
	}

	t, err := onActive(ctx, s, func(st *taskstore.Store) (domain.Task, error) {
		return st.UpdateLayout(ctx, id, patch)
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.publish(ctx, domain.EventTasksChanged)
	return t, nil
}

// DeleteTask removes a task and its descendants.
func (s *Service) DeleteTask(ctx context.Context, id int64) ([]int64, error) {
	removed, err := onActive(ctx, s, func(st *taskstore.Store) ([]int64, error) {
		return st.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventTasksChanged)
	return removed, nil
}

// ReorderTasks applies a bulk placement set all-or-nothing.
func (s *Service) ReorderTasks(ctx context.Context, updates []domain.Reorder) (int, error) {
	moved, err := onActive(ctx, s, func(st *taskstore.Store) (int, error) {
		return st.Reorder(ctx, updates)
	})
	if err != nil {
		return 0, err
	}

	if moved > 0 {
		s.publish(ctx, domain.EventTasksChanged)
	}
	return moved, nil
}

// ReorderTree flattens a nested forest, as produced by a drag-and-drop
// view, and applies it as one reorder.
func (s *Service) ReorderTree(ctx context.Context, forest []*domain.Node) (int, error) {
	return s.ReorderTasks(ctx, tree.Flatten(forest))
}

// MoveTaskAsChild appends id under parentID (nil = roots).
func (s *Service) MoveTaskAsChild(ctx context.Context, id int64, parentID *int64) (domain.Task, error) {
	return s.move(ctx, func(st *taskstore.Store) (domain.Task, int, error) {
		return st.MoveAsChild(ctx, id, parentID)
	})
}

// MoveTaskAfter places id right after afterID.
func (s *Service) MoveTaskAfter(ctx context.Context, id, afterID int64) (domain.Task, error) {
	return s.move(ctx, func(st *taskstore.Store) (domain.Task, int, error) {
		return st.MoveAfter(ctx, id, afterID)
	})
}

// MoveTaskTo repositions id among its siblings.
func (s *Service) MoveTaskTo(ctx context.Context, id int64, position int) (domain.Task, error) {
	return s.move(ctx, func(st *taskstore.Store) (domain.Task, int, error) {
		return st.MoveTo(ctx, id, position)
	})
}

type moveResult struct {
	task  domain.Task
	moved int
}

// move publishes only when at least one placement changed.
func (s *Service) move(ctx context.Context, fn func(st *taskstore.Store) (domain.Task, int, error)) (domain.Task, error) {
	res, err := onActive(ctx, s, func(st *taskstore.Store) (moveResult, error) {
		t, moved, err := fn(st)
		return moveResult{task: t, moved: moved}, err
	})
	if err != nil {
		return domain.Task{}, err
	}

	if res.moved > 0 {
		s.publish(ctx, domain.EventTasksChanged)
	}
	return res.task, nil
}

// SetCurrentTask marks id as the active workspace's current task.
func (s *Service) SetCurrentTask(ctx context.Context, id int64) (bool, error) {
	changed, err := onActive(ctx, s, func(st *taskstore.Store) (bool, error) {
		return st.SetCurrent(ctx, id)
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.publish(ctx, domain.EventTasksChanged)
	}
	return changed, nil
}

// ClearCurrentTask removes the current marker.
func (s *Service) ClearCurrentTask(ctx context.Context) (bool, error) {
	changed, err := onActive(ctx, s, func(st *taskstore.Store) (bool, error) {
		return st.ClearCurrent(ctx)
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.publish(ctx, domain.EventTasksChanged)
	}
	return changed, nil
}

// CurrentTask returns the current task or nil.
func (s *Service) CurrentTask(ctx context.Context) (*domain.Task, error) {
	return onActive(ctx, s, func(st *taskstore.Store) (*domain.Task, error) {
		return st.Current(ctx)
	})
}

// SearchTasks searches the active workspace.
func (s *Service) SearchTasks(ctx context.Context, query string) ([]domain.Task, error) {
	return onActive(ctx, s, func(st *taskstore.Store) ([]domain.Task, error) {
		return st.Search(ctx, query)
	})
}

// SearchAll searches every workspace concurrently. Hits are ordered by
// workspace name, then task id.
func (s *Service) SearchAll(ctx context.Context, query string) ([]domain.SearchHit, error) {
	list, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		hits []domain.SearchHit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, name := range list.Names {
		g.Go(func() error {
			st, err := s.registry.Store(gctx, name)
			if err != nil {
				return fmt.Errorf("failed to open workspace '%s': %w", name, err)
			}
			found, err := st.Search(gctx, query)
			if err != nil {
				return fmt.Errorf("failed to search workspace '%s': %w", name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, t := range found {
				hits = append(hits, domain.SearchHit{Workspace: name, Task: t})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Workspace != hits[j].Workspace {
			return hits[i].Workspace < hits[j].Workspace
		}
		return hits[i].Task.ID < hits[j].Task.ID
	})
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	return hits, nil
}

// DanglingTasks lists tasks of the active workspace whose parent is missing.
func (s *Service) DanglingTasks(ctx context.Context) ([]domain.Task, error) {
	return onActive(ctx, s, func(st *taskstore.Store) ([]domain.Task, error) {
		return st.Dangling(ctx)
	})
}

// ActiveWorkspace returns the active workspace name.
func (s *Service) ActiveWorkspace(ctx context.Context) (string, error) {
	return s.registry.Active(ctx)
}

// Workspaces returns every workspace name and the active one.
func (s *Service) Workspaces(ctx context.Context) (domain.WorkspaceList, error) {
	return s.registry.List(ctx)
}

// SwitchWorkspace activates name, creating it when missing. Observers are
// told to re-read both the workspace set and the forest.
func (s *Service) SwitchWorkspace(ctx context.Context, name string) (domain.WorkspaceList, error) {
	changed, created, err := s.registry.Switch(ctx, name)
	if err != nil {
		return domain.WorkspaceList{}, err
	}

	if changed || created {
		s.publish(ctx, domain.EventWorkspaceChanged, domain.EventTasksChanged)
	}

	list, err := s.registry.List(ctx)
	if err != nil {
		// The switch is committed; report it even when the listing fails.
		s.logger.Warn().Err(err).Str("workspace", name).Msg("failed to list workspaces after switch")
		name = strings.TrimSpace(name)
		return domain.WorkspaceList{Names: []string{name}, Active: name}, nil
	}
	return list, nil
}

// CreateWorkspace adds an empty workspace.
func (s *Service) CreateWorkspace(ctx context.Context, name string) error {
	if err := s.registry.Create(ctx, name); err != nil {
		return err
	}
	s.publish(ctx, domain.EventWorkspaceChanged)
	return nil
}

// DeleteWorkspace removes an inactive workspace.
func (s *Service) DeleteWorkspace(ctx context.Context, name string) error {
	if err := s.registry.Delete(ctx, name); err != nil {
		return err
	}
	s.publish(ctx, domain.EventWorkspaceChanged)
	return nil
}

// RenameWorkspace renames a workspace, moving the active pointer with it.
func (s *Service) RenameWorkspace(ctx context.Context, oldName, newName string) error {
	if err := s.registry.Rename(ctx, oldName, newName); err != nil {
		return err
	}
	if oldName != strings.TrimSpace(newName) {
		s.publish(ctx, domain.EventWorkspaceChanged)
	}
	return nil
}

// ExportWorkspace snapshots a workspace; an empty name exports the active one.
func (s *Service) ExportWorkspace(ctx context.Context, name string) (domain.Snapshot, error) {
	if name == "" {
		active, err := s.registry.Active(ctx)
		if err != nil {
			return domain.Snapshot{}, err
		}
		name = active
	}
	return s.registry.Export(ctx, name)
}

// ImportWorkspace creates a workspace from a snapshot. An empty name uses
// the snapshot's own workspace name.
func (s *Service) ImportWorkspace(ctx context.Context, name string, snap domain.Snapshot) error {
	if name == "" {
		name = snap.Workspace
	}
	if name == "" {
		return fmt.Errorf("import needs a workspace name: %w", tmerrors.ErrInvalidName)
	}

	if err := s.registry.Import(ctx, name, snap); err != nil {
		return err
	}
	s.publish(ctx, domain.EventWorkspaceChanged)
	return nil
}
