package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"templatetracker/internal/config"
	"templatetracker/internal/dto"
	"templatetracker/internal/geometry"
	"templatetracker/internal/logger"
	"templatetracker/internal/model"
	"templatetracker/internal/repository/sqlite"
	hub "templatetracker/internal/services/websocket"
)

type fakeStatus struct{ status dto.TrackerStatus }

func (f fakeStatus) Status() dto.TrackerStatus { return f.status }

type fakeViewers struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
	count int
}

func (f *fakeViewers) Register(c *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns == nil {
		f.conns = make(map[*websocket.Conn]bool)
	}
	f.conns[c] = true
}

func (f *fakeViewers) Unregister(c *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, c)
}

func (f *fakeViewers) GetClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conns == nil {
		return f.count
	}
	return len(f.conns)
}

func (f *fakeViewers) PongWait() time.Duration { return time.Minute }

type recordingReceiver struct {
	mu     sync.Mutex
	events []dto.SelectionEvent
	err    error
}

func (r *recordingReceiver) HandleSelection(ev dto.SelectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	r.events = append(r.events, ev)
	return nil
}

func setupRepos(t *testing.T) Repositories {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return Repositories{
		Sessions:    sqlite.NewSessionRepository(db),
		Selections:  sqlite.NewSelectionRepository(db),
		TrackEvents: sqlite.NewTrackEventRepository(db),
		Snapshots:   sqlite.NewSnapshotRepository(db),
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestStatusHandler(t *testing.T) {
	rect := geometry.NewRectangle(10, 20, 110, 120)
	source := fakeStatus{status: dto.TrackerStatus{
		SessionID: "abc",
		State:     "has_template",
		Template:  &rect,
		Located:   true,
		Matches:   15,
		Inliers:   12,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	StatusHandler(source, &fakeViewers{count: 3}, logger.NewNop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, expected 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got dto.TrackerStatus
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Viewers != 3 {
		t.Errorf("Viewers = %d, expected 3", got.Viewers)
	}
	if got.Template == nil || *got.Template != rect {
		t.Errorf("Template = %v, expected %+v", got.Template, rect)
	}
	if !got.Located || got.Inliers != 12 {
		t.Errorf("unexpected status %+v", got)
	}
}

func TestSessionsHandler_Pagination(t *testing.T) {
	repos := setupRepos(t)
	for i := 0; i < 5; i++ {
		s := &model.Session{Source: "0", StartedAt: time.Now().Add(time.Duration(i) * time.Minute)}
		if err := repos.Sessions.Create(s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tests := []struct {
		query       string
		page        int
		expectedLen int
		totalPages  int
	}{
		{"?page=1&limit=2", 1, 2, 3},
		{"?page=3&limit=2", 3, 1, 3},
		{"?page=abc&limit=-4", 1, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil)
			w := httptest.NewRecorder()
			SessionsHandler(repos, logger.NewNop())(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status code = %d, expected 200", w.Code)
			}
			var data struct {
				Sessions    []map[string]interface{} `json:"sessions"`
				Length      int                      `json:"length"`
				TotalPages  int                      `json:"totalPages"`
				CurrentPage int                      `json:"currentPage"`
			}
			if err := json.NewDecoder(w.Body).Decode(&data); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if len(data.Sessions) != tt.expectedLen {
				t.Errorf("got %d sessions, expected %d", len(data.Sessions), tt.expectedLen)
			}
			if data.Length != 5 || data.TotalPages != tt.totalPages || data.CurrentPage != tt.page {
				t.Errorf("unexpected pagination %+v", data)
			}
		})
	}
}

func TestSessionEventsHandler(t *testing.T) {
	repos := setupRepos(t)
	s := &model.Session{Source: "video.mp4"}
	if err := repos.Sessions.Create(s); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repos.Selections.Insert(&model.Selection{SessionID: s.ID, Rect: geometry.NewRectangle(0, 0, 50, 50), Keypoints: 40}); err != nil {
		t.Fatalf("Insert selection failed: %v", err)
	}
	var events []model.TrackEvent
	for i := int64(1); i <= 4; i++ {
		events = append(events, model.TrackEvent{SessionID: s.ID, Frame: i * 10, Located: i%2 == 0, Matches: 15, Inliers: int(i)})
	}
	if err := repos.TrackEvents.InsertBatch(events); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/events?id="+s.ID+"&limit=3", nil)
	w := httptest.NewRecorder()
	SessionEventsHandler(repos, logger.NewNop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, expected 200", w.Code)
	}
	var data dto.SessionEventsData
	if err := json.NewDecoder(w.Body).Decode(&data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.SessionID != s.ID || data.Selections != 1 {
		t.Errorf("unexpected header %+v", data)
	}
	if len(data.Events) != 3 {
		t.Fatalf("got %d events, expected the latest 3", len(data.Events))
	}
	if data.Events[0].Frame != 20 || data.Events[2].Frame != 40 {
		t.Errorf("events not in frame order: %+v", data.Events)
	}
}

func TestSessionEventsHandler_Errors(t *testing.T) {
	repos := setupRepos(t)

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"missing id", "", http.StatusBadRequest},
		{"unknown id", "?id=nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions/events"+tt.query, nil)
			w := httptest.NewRecorder()
			SessionEventsHandler(repos, logger.NewNop())(w, req)
			if w.Code != tt.expected {
				t.Errorf("status code = %d, expected %d", w.Code, tt.expected)
			}
		})
	}
}

func TestViewSnapshotHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "snap.jpg"), []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{SnapshotDirectory: dir}

	tests := []struct {
		query    string
		expected int
	}{
		{"?name=snap.jpg", http.StatusOK},
		{"?name=../../etc/snap.jpg", http.StatusOK},
		{"?name=missing.jpg", http.StatusNotFound},
		{"", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/snapshots/view"+tt.query, nil)
		w := httptest.NewRecorder()
		ViewSnapshotHandler(cfg)(w, req)
		if w.Code != tt.expected {
			t.Errorf("%q: status code = %d, expected %d", tt.query, w.Code, tt.expected)
		}
	}
}

func TestLogsHandlers(t *testing.T) {
	cfg := &config.Config{LogDirectory: t.TempDir(), LogLevel: "info"}
	l, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()
	l.Info("frame loop started")

	req := httptest.NewRequest(http.MethodGet, "/logs/show?level=info", nil)
	w := httptest.NewRecorder()
	ShowLogsHandler(cfg)(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "frame loop started") {
		t.Fatalf("show: code %d body %q", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/logs/clear?level=info", nil)
	w = httptest.NewRecorder()
	ClearLogsHandler(l)(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET clear: code %d, expected 405", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/logs/clear?level=info", nil)
	w = httptest.NewRecorder()
	ClearLogsHandler(l)(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("POST clear: code %d, expected 204", w.Code)
	}
	info, err := os.Stat(filepath.Join(cfg.LogDirectory, "info.log"))
	if err != nil || info.Size() != 0 {
		t.Errorf("info.log not truncated: %v %v", info, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/logs/show?level=debug", nil)
	w = httptest.NewRecorder()
	ShowLogsHandler(cfg)(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown level: code %d, expected 400", w.Code)
	}
}

func TestControlWebsocketHandler(t *testing.T) {
	receiver := &recordingReceiver{}
	server := httptest.NewServer(ControlWebsocketHandler(receiver, logger.NewNop()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	messages := []struct {
		payload string
		ok      bool
	}{
		{`{"type":"started"}`, true},
		{`{"type":"finished","rect":{"x_min":120,"y_min":90,"x_max":20,"y_max":10}}`, true},
		{`{"type":"resize"}`, false},
		{`not json`, false},
	}
	for _, m := range messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m.payload)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		var reply controlReply
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("read reply failed: %v", err)
		}
		if reply.OK != m.ok {
			t.Errorf("%s: reply %+v, expected ok=%v", m.payload, reply, m.ok)
		}
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	if len(receiver.events) != 2 {
		t.Fatalf("got %d events, expected 2", len(receiver.events))
	}
	if got := receiver.events[1].Rect; got != geometry.NewRectangle(20, 10, 120, 90) {
		t.Errorf("rectangle not normalised: %+v", got)
	}
}

func TestControlWebsocketHandler_QueueFull(t *testing.T) {
	receiver := &recordingReceiver{err: errors.New("command queue full")}
	server := httptest.NewServer(ControlWebsocketHandler(receiver, logger.NewNop()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"cancelled"}`))
	var reply controlReply
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	if reply.OK || reply.Error != "command queue full" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestViewWebsocketHandler_RegistersViewer(t *testing.T) {
	viewers := &fakeViewers{}
	server := httptest.NewServer(ViewWebsocketHandler(viewers, logger.NewNop()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	waitFor(t, func() bool { return viewers.GetClientCount() == 1 })
	conn.Close()
	waitFor(t, func() bool { return viewers.GetClientCount() == 0 })
}

func TestViewWebsocketHandler_IdleViewerStaysConnected(t *testing.T) {
	pongWait := 300 * time.Millisecond
	viewers := hub.NewHubService(&config.Config{ViewerTimeout: pongWait}, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go viewers.Run(ctx)

	server := httptest.NewServer(ViewWebsocketHandler(viewers, logger.NewNop()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// Like a browser: never write, but keep reading so pings get answered.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	waitFor(t, func() bool { return viewers.GetClientCount() == 1 })
	time.Sleep(4 * pongWait)
	if viewers.GetClientCount() != 1 {
		t.Fatalf("idle viewer dropped after %v", 4*pongWait)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
