package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"templatetracker/internal/config"
	"templatetracker/internal/logger"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves one of the log files, chosen by the "level"
// parameter.
func ShowLogsHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.URL.Query().Get("level")]
		if !ok {
			http.Error(w, "level must be info, warning or error", http.StatusBadRequest)
			return
		}
		serveLogFile(w, r, cfg.LogDirectory, filename)
	}
}

func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Log file not found: "+filename, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file chosen by "level". POST only.
func ClearLogsHandler(l *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		filename, ok := logFiles[r.URL.Query().Get("level")]
		if !ok {
			http.Error(w, "level must be info, warning or error", http.StatusBadRequest)
			return
		}
		if err := l.CleanLogs(filename); err != nil {
			l.Error("Error clearing %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
