package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"templatetracker/internal/config"
	"templatetracker/internal/handlers"
	"templatetracker/internal/logger"
	"templatetracker/internal/middleware"
)

// Tracker is the part of the frame loop the HTTP surface talks to.
type Tracker interface {
	handlers.SelectionReceiver
	handlers.StatusSource
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the API, websocket, log and metrics endpoints plus
// static file serving, and wraps the mux with request logging.
func SetupRoutes(tracker Tracker, viewers handlers.Viewers, repos handlers.Repositories,
	gatherer prometheus.Gatherer, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Websockets
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(viewers, logger))
	mux.HandleFunc("/api/control", handlers.ControlWebsocketHandler(tracker, logger))

	// API endpoints
	mux.HandleFunc("/api/status", handlers.StatusHandler(tracker, viewers, logger))
	mux.HandleFunc("/api/sessions", handlers.SessionsHandler(repos, logger))
	mux.HandleFunc("/api/sessions/events", handlers.SessionEventsHandler(repos, logger))
	mux.HandleFunc("/api/snapshots/view", handlers.ViewSnapshotHandler(cfg))

	// Log endpoints
	mux.HandleFunc("/logs/show", handlers.ShowLogsHandler(cfg))
	mux.HandleFunc("/logs/clear", handlers.ClearLogsHandler(logger))

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	return middleware.LoggingMiddleware(logger, mux)
}
