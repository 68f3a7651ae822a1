package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"templatetracker/internal/config"
	"templatetracker/internal/dto"
	"templatetracker/internal/handlers"
	"templatetracker/internal/logger"
	"templatetracker/internal/metric"
	"templatetracker/internal/repository/sqlite"
	"templatetracker/internal/services/websocket"
)

type idleTracker struct{}

func (idleTracker) HandleSelection(ev dto.SelectionEvent) error { return ev.Validate() }

func (idleTracker) Status() dto.TrackerStatus {
	return dto.TrackerStatus{SessionID: "s1", State: "no_template"}
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>tracker</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		StaticDirectory:   staticDir,
		SnapshotDirectory: t.TempDir(),
		LogDirectory:      t.TempDir(),
	}

	db, err := sqlite.New(filepath.Join(t.TempDir(), "routes.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repos := handlers.Repositories{
		Sessions:    sqlite.NewSessionRepository(db),
		Selections:  sqlite.NewSelectionRepository(db),
		TrackEvents: sqlite.NewTrackEventRepository(db),
		Snapshots:   sqlite.NewSnapshotRepository(db),
	}

	reg := prometheus.NewRegistry()
	m, err := metric.New(reg, nil)
	if err != nil {
		t.Fatalf("metric.New failed: %v", err)
	}
	m.SetHasTemplate(false)

	hub := websocket.NewHubService(cfg, logger.NewNop())
	server := httptest.NewServer(SetupRoutes(idleTracker{}, hub, repos, reg, cfg, logger.NewNop()))
	t.Cleanup(server.Close)
	return server
}

func TestSetupRoutes(t *testing.T) {
	server := setupServer(t)

	tests := []struct {
		path     string
		expected int
		contains string
	}{
		{"/", http.StatusOK, "tracker"},
		{"/index", http.StatusOK, "tracker"},
		{"/missing", http.StatusNotFound, ""},
		{"/api/status", http.StatusOK, `"state":"no_template"`},
		{"/api/sessions", http.StatusOK, `"sessions":[]`},
		{"/api/sessions/events", http.StatusBadRequest, ""},
		{"/metrics", http.StatusOK, "tracker_has_template 0"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.expected {
				t.Errorf("status %d, expected %d", resp.StatusCode, tt.expected)
			}
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}
