package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/mrz1836/taskmcp/internal/domain"
	tmerrors "github.com/mrz1836/taskmcp/internal/errors"
)

const wsWriteWait = 5 * time.Second

var wsUpgrader = websocket.Upgrader{ //nolint:gochecknoglobals // shared upgrader
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header and browser
// requests whose origin host matches the host they were sent to.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// wsMessage is what /ws observers receive: a kind and nothing else.
// Observers re-read the state they care about.
type wsMessage struct {
	Type domain.EventKind `json:"type"`
}

// handleNotify lets a process that mutated a dataset directly (the CLI)
// nudge this server's observers.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("kind")
	kind, known := domain.ParseEventKind(raw)
	if !known {
		s.writeError(w, r, fmt.Errorf("unknown event kind '%s': %w", raw, tmerrors.ErrInvalidArgument))
		return
	}
	s.hub.Publish(r.Context(), kind)
	writeJSON(w, http.StatusOK, ok(nil))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	sub := s.hub.Subscribe()
	defer sub.Cancel()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := s.logger.With().Str("observer", sub.ID()).Str("channel", "ws").Logger()
	log.Debug().Msg("observer connected")
	defer log.Debug().Msg("observer disconnected")

	// The read side only exists to notice the peer going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAlive := time.NewTicker(s.opts.Keepalive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-keepAlive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-sub.Ready():
			for _, kind := range sub.Drain() {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(wsMessage{Type: kind}); err != nil {
					log.Debug().Err(err).Msg("write failed")
					return
				}
			}
		}
	}
}

// handleEvents streams change events as datastar signal patches:
// {"event": "<kind>", "seq": n}. An empty patch is sent as keepalive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sub := s.hub.Subscribe()
	defer sub.Cancel()

	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(map[string]any{"event": "connected", "seq": s.seq.Load()})

	keepAlive := time.NewTicker(s.opts.Keepalive)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-sub.Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-sub.Ready():
			for _, kind := range sub.Drain() {
				seq := s.seq.Add(1)
				if err := sse.MarshalAndPatchSignals(map[string]any{"event": kind, "seq": seq}); err != nil {
					return
				}
			}
		}
	}
}
