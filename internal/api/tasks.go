package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
	"github.com/mrz1836/taskmcp/internal/service"
)

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		forest []*domain.Node
		err    error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("focus")); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			s.writeError(w, r, fmt.Errorf("focus '%s' is not a task id: %w", raw, tmerrors.ErrInvalidArgument))
			return
		}
		forest, err = s.svc.FocusTasks(ctx, id)
	} else {
		forest, err = s.svc.Tasks(ctx)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if forest == nil {
		forest = []*domain.Node{}
	}
	writeJSON(w, http.StatusOK, forest)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.CreateTask(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in domain.EditInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.EditTask(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.ToggleTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.svc.DeleteTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"removed": removed}))
}

func (s *Server) handleTaskLayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch domain.LayoutPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.UpdateLayout(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// moveRequest selects one of the single-task moves. Exactly one of After,
// Position or AsChild should be set; AsChild with a null ParentID moves the
// task to the roots.
type moveRequest struct {
	After    *int64 `json:"after,omitempty"`
	Position *int   `json:"position,omitempty"`
	AsChild  bool   `json:"as_child,omitempty"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (s *Server) handleTaskMove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in moveRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	var t domain.Task
	switch {
	case in.After != nil:
		t, err = s.svc.MoveTaskAfter(ctx, id, *in.After)
	case in.Position != nil:
		t, err = s.svc.MoveTaskTo(ctx, id, *in.Position)
	case in.AsChild:
		t, err = s.svc.MoveTaskAsChild(ctx, id, in.ParentID)
	default:
		err = fmt.Errorf("move needs after, position or as_child: %w", tmerrors.ErrInvalidArgument)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskReorder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Updates []domain.Reorder `json:"updates"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	moved, err := s.svc.ReorderTasks(r.Context(), in.Updates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"moved": moved}))
}

func (s *Server) handleTaskNestedReorder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Tree []*domain.Node `json:"tree"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	moved, err := s.svc.ReorderTree(r.Context(), in.Tree)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"moved": moved}))
}

func (s *Server) handleTaskSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	if all, _ := strconv.ParseBool(q.Get("all")); all {
		hits, err := s.svc.SearchAll(r.Context(), query)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, hits)
		return
	}

	found, err := s.svc.SearchTasks(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		found = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleTaskDangling(w http.ResponseWriter, r *http.Request) {
	found, err := s.svc.DanglingTasks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		found = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.CurrentTask(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var id *int64
	if t != nil {
		id = domain.ID(t.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id, "task": t})
}

func (s *Server) handleCurrentSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	changed, err := s.svc.SetCurrentTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"changed": changed, "task_id": id}))
}

func (s *Server) handleCurrentClear(w http.ResponseWriter, r *http.Request) {
	changed, err := s.svc.ClearCurrentTask(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"changed": changed}))
}
