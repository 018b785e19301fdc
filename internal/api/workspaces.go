package api

import (
	"net/http"
)

type workspaceRequest struct {
	Workspace string `json:"workspace"`
}

type renameRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Workspaces(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleWorkspaceSwitch(w http.ResponseWriter, r *http.Request) {
	var in workspaceRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.SwitchWorkspace(r.Context(), in.Workspace)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"workspace": list.Active, "workspaces": list.Names}))
}

func (s *Server) handleWorkspaceCreate(w http.ResponseWriter, r *http.Request) {
	var in workspaceRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.CreateWorkspace(r.Context(), in.Workspace); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok(map[string]any{"workspace": in.Workspace}))
}

func (s *Server) handleWorkspaceDelete(w http.ResponseWriter, r *http.Request) {
	var in workspaceRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteWorkspace(r.Context(), in.Workspace); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"workspace": in.Workspace}))
}

func (s *Server) handleWorkspaceRename(w http.ResponseWriter, r *http.Request) {
	var in renameRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.RenameWorkspace(r.Context(), in.OldName, in.NewName); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{"old_name": in.OldName, "new_name": in.NewName}))
}
