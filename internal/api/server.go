// Package api exposes the service over HTTP: a JSON read/write surface for
// tasks and workspaces, plus two live notification channels (a websocket
// and a datastar SSE stream) fed by the in-process hub.
package api

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/notify"
	"github.com/mrz1836/taskmcp/internal/service"
)

// Options configures a Server.
type Options struct {
	// Keepalive is the interval between keepalive frames on /ws and /events.
	Keepalive time.Duration

	// ReadHeaderTimeout bounds request header reads.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration

	Logger zerolog.Logger
}

// Server serves the HTTP API.
type Server struct {
	svc    *service.Service
	hub    *notify.Hub
	opts   Options
	logger zerolog.Logger

	// seq numbers the events sent on /events so clients can spot gaps.
	seq atomic.Uint64
}

// New creates a Server. hub must be the notifier svc publishes to, so that
// mutations made through the API reach the live channels.
func New(svc *service.Service, hub *notify.Hub, opts Options) *Server {
	if opts.Keepalive <= 0 {
		opts.Keepalive = constants.KeepaliveInterval
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = constants.ReadHeaderTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = constants.ShutdownTimeout
	}
	return &Server{
		svc:    svc,
		hub:    hub,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	mux.HandleFunc("GET /api/tasks/search", s.handleTaskSearch)
	mux.HandleFunc("GET /api/tasks/dangling", s.handleTaskDangling)
	mux.HandleFunc("POST /api/tasks/reorder", s.handleTaskReorder)
	mux.HandleFunc("POST /api/tasks/nested-reorder", s.handleTaskNestedReorder)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	mux.HandleFunc("POST /api/tasks/{id}/edit", s.handleTaskEdit)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleTaskToggle)
	mux.HandleFunc("POST /api/tasks/{id}/delete", s.handleTaskDelete)
	mux.HandleFunc("POST /api/tasks/{id}/layout", s.handleTaskLayout)
	mux.HandleFunc("POST /api/tasks/{id}/move", s.handleTaskMove)

	mux.HandleFunc("GET /api/current", s.handleCurrent)
	mux.HandleFunc("POST /api/current/clear", s.handleCurrentClear)
	mux.HandleFunc("POST /api/current/{id}", s.handleCurrentSet)

	mux.HandleFunc("GET /api/workspaces", s.handleWorkspaces)
	mux.HandleFunc("POST /api/workspaces/switch", s.handleWorkspaceSwitch)
	mux.HandleFunc("POST /api/workspaces/create", s.handleWorkspaceCreate)
	mux.HandleFunc("POST /api/workspaces/delete", s.handleWorkspaceDelete)
	mux.HandleFunc("POST /api/workspaces/rename", s.handleWorkspaceRename)

	mux.HandleFunc("POST /api/notify/{kind}", s.handleNotify)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /events", s.handleEvents)
	return mux
}

// Run listens on addr until ctx is canceled, then shuts down gracefully.
// Open event streams end when the hub is closed.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("graceful shutdown incomplete")
		return err
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "observers": s.hub.Len()})
}
