package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskmcp/internal/domain"
	"github.com/mrz1836/taskmcp/internal/notify"
	"github.com/mrz1836/taskmcp/internal/service"
	"github.com/mrz1836/taskmcp/internal/testutil"
)

type testServer struct {
	*httptest.Server
	hub *notify.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := notify.NewHub(zerolog.Nop())
	svc := service.New(testutil.NewRegistry(t), hub, service.Options{Logger: zerolog.Nop()})
	srv := New(svc, hub, Options{Keepalive: time.Hour, Logger: zerolog.Nop()})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return &testServer{Server: ts, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, rdr)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func (ts *testServer) createTask(t *testing.T, title string, parentID *int64) domain.Task {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": title, "parent_id": parentID})
	require.Equal(t, http.StatusCreated, status, string(body))
	var task domain.Task
	require.NoError(t, json.Unmarshal(body, &task))
	return task
}

// TestAPI_TaskLifecycle tests create, nest, toggle and cascade delete over HTTP.
func TestAPI_TaskLifecycle(t *testing.T) {
	ts := newTestServer(t)

	a := ts.createTask(t, "A", nil)
	b := ts.createTask(t, "B", domain.ID(a.ID))

	status, body := ts.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, status)
	var forest []*domain.Node
	require.NoError(t, json.Unmarshal(body, &forest))
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, b.ID, forest[0].Children[0].ID)

	status, body = ts.do(t, http.MethodPost, "/api/tasks/"+itoa(b.ID)+"/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	var toggled domain.Task
	require.NoError(t, json.Unmarshal(body, &toggled))
	assert.True(t, toggled.Done)

	status, body = ts.do(t, http.MethodPost, "/api/tasks/"+itoa(a.ID)+"/delete", nil)
	require.Equal(t, http.StatusOK, status)
	var deleted struct {
		Removed []int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(body, &deleted))
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, deleted.Removed)

	status, body = ts.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

// TestAPI_ErrorMapping tests the status codes for each error class.
func TestAPI_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createTask(t, "A", nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing task", http.MethodGet, "/api/tasks/999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/tasks/abc", nil, http.StatusBadRequest},
		{"empty title", http.MethodPost, "/api/tasks", map[string]any{"title": "  "}, http.StatusBadRequest},
		{"missing parent", http.MethodPost, "/api/tasks", map[string]any{"title": "x", "parent_id": 999}, http.StatusBadRequest},
		{"self parent", http.MethodPost, "/api/tasks/reorder",
			map[string]any{"updates": []map[string]any{{"id": a.ID, "position": 0, "parent_id": a.ID}}}, http.StatusBadRequest},
		{"set current missing", http.MethodPost, "/api/current/999", nil, http.StatusNotFound},
		{"invalid workspace name", http.MethodPost, "/api/workspaces/create", map[string]any{"workspace": "bad name"}, http.StatusBadRequest},
		{"delete active", http.MethodPost, "/api/workspaces/delete", map[string]any{"workspace": "default"}, http.StatusConflict},
		{"delete missing", http.MethodPost, "/api/workspaces/delete", map[string]any{"workspace": "ghost"}, http.StatusNotFound},
		{"unknown event", http.MethodPost, "/api/notify/whatever", nil, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ts.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, status, string(body))

			var payload map[string]string
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.NotEmpty(t, payload["error"])
		})
	}
}

// TestAPI_MalformedBody tests that undecodable JSON is a client error.
func TestAPI_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/api/tasks", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestAPI_CurrentTask tests set, read and clear of the current pointer.
func TestAPI_CurrentTask(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createTask(t, "A", nil)

	_, body := ts.do(t, http.MethodGet, "/api/current", nil)
	assert.JSONEq(t, `{"task_id": null, "task": null}`, string(body))

	status, _ := ts.do(t, http.MethodPost, "/api/current/"+itoa(a.ID), nil)
	require.Equal(t, http.StatusOK, status)

	_, body = ts.do(t, http.MethodGet, "/api/current", nil)
	var cur struct {
		TaskID *int64 `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(body, &cur))
	require.NotNil(t, cur.TaskID)
	assert.Equal(t, a.ID, *cur.TaskID)

	status, body = ts.do(t, http.MethodPost, "/api/current/clear", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"changed":true`)
}

// TestAPI_Reorder tests a bulk reorder and the nested variant.
func TestAPI_Reorder(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createTask(t, "A", nil)
	b := ts.createTask(t, "B", nil)
	c := ts.createTask(t, "C", nil)

	status, body := ts.do(t, http.MethodPost, "/api/tasks/reorder", map[string]any{
		"updates": []map[string]any{{"id": c.ID, "position": 0, "parent_id": nil}},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	_, body = ts.do(t, http.MethodGet, "/api/tasks", nil)
	var forest []*domain.Node
	require.NoError(t, json.Unmarshal(body, &forest))
	require.Len(t, forest, 3)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, []int64{forest[0].ID, forest[1].ID, forest[2].ID})

	status, body = ts.do(t, http.MethodPost, "/api/tasks/nested-reorder", map[string]any{
		"tree": []map[string]any{
			{"id": a.ID, "children": []map[string]any{{"id": b.ID}, {"id": c.ID}}},
		},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	_, body = ts.do(t, http.MethodGet, "/api/tasks", nil)
	forest = nil
	require.NoError(t, json.Unmarshal(body, &forest))
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, b.ID, forest[0].Children[0].ID)
}

// TestAPI_Workspaces tests the workspace lifecycle routes.
func TestAPI_Workspaces(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/workspaces/switch", map[string]any{"workspace": "work"})
	require.Equal(t, http.StatusOK, status, string(body))

	_, body = ts.do(t, http.MethodGet, "/api/workspaces", nil)
	var list domain.WorkspaceList
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "work", list.Active)
	assert.ElementsMatch(t, []string{"default", "work"}, list.Names)

	status, _ = ts.do(t, http.MethodPost, "/api/workspaces/create", map[string]any{"workspace": "work"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ts.do(t, http.MethodPost, "/api/workspaces/rename", map[string]any{"old_name": "work", "new_name": "job"})
	require.Equal(t, http.StatusOK, status)

	_, body = ts.do(t, http.MethodGet, "/api/workspaces", nil)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "job", list.Active)

	status, _ = ts.do(t, http.MethodPost, "/api/workspaces/delete", map[string]any{"workspace": "default"})
	assert.Equal(t, http.StatusOK, status)
}

// TestAPI_WebSocketReceivesNudges tests that a mutation reaches a /ws observer.
func TestAPI_WebSocketReceivesNudges(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return ts.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	ts.createTask(t, "A", nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, domain.EventTasksChanged, msg.Type)
}

// TestSameOrigin tests the websocket origin check.
func TestSameOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://localhost:5000", true},
		{"same host other case", "http://LocalHost:5000", true},
		{"host as prefix", "http://localhost:5000.evil.example", false},
		{"other port", "http://localhost:5001", false},
		{"host in path", "http://evil.example/localhost:5000", false},
		{"no scheme", "localhost:5000", false},
		{"unparsable", "http://%zz", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://localhost:5000/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, sameOrigin(r))
		})
	}
}

// TestAPI_WebSocketRejectsForeignOrigin tests that a cross-site upgrade is refused.
func TestAPI_WebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	origin := strings.Replace(ts.URL, "127.0.0.1", "127.0.0.1.evil.example", 1)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {origin}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, ts.hub.Len())
}

// TestAPI_CreateWithColor tests the initial color on task creation.
func TestAPI_CreateWithColor(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "A", "color": "red"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var task domain.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, "red", task.Layout.Color)
}

// TestAPI_NotifyEndpointFeedsHub tests that a remote nudge reaches observers.
func TestAPI_NotifyEndpointFeedsHub(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.hub.Subscribe()
	defer sub.Cancel()

	remote := notify.NewRemote(ts.URL, time.Second, zerolog.Nop())
	remote.Publish(context.Background(), domain.EventWorkspaceChanged)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	kinds, err := sub.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventKind{domain.EventWorkspaceChanged}, kinds)
}

// TestAPI_EventsStream tests the SSE channel.
func TestAPI_EventsStream(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	waitFor := func(needle string) {
		t.Helper()
		for {
			select {
			case line, open := <-lines:
				require.True(t, open, "stream closed before %q", needle)
				if strings.Contains(line, needle) {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", needle)
			}
		}
	}

	waitFor("connected")
	ts.createTask(t, "A", nil)
	waitFor(string(domain.EventTasksChanged))
}

func TestAPI_Health(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
