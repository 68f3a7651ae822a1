package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"templatetracker/internal/config"
	"templatetracker/internal/dto"
	"templatetracker/internal/logger"
	"templatetracker/internal/repository"
)

// Repositories read by the history endpoints.
type Repositories struct {
	Sessions    repository.SessionRepository
	Selections  repository.SelectionRepository
	TrackEvents repository.TrackEventRepository
	Snapshots   repository.SnapshotRepository
}

// SessionsHandler lists past and running sessions, newest first, with
// pagination (page, limit) and optional source and since (2006-01-02) filters.
func SessionsHandler(repos Repositories, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 20)

		filter := &dto.SessionFilter{
			Source: q.Get("source"),
			Since:  parseDate(q.Get("since")),
		}

		total, err := repos.Sessions.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting sessions: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		sessions, err := repos.Sessions.GetAll(filter)
		if err != nil {
			logger.Error("Error listing sessions: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := dto.SessionsData{
			Sessions:    make([]dto.SessionInfo, 0, len(sessions)),
			Length:      total,
			TotalPages:  (total + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		for _, s := range sessions {
			data.Sessions = append(data.Sessions, dto.SessionInfo{
				ID:        s.ID,
				Source:    s.Source,
				StartedAt: s.StartedAt,
				EndedAt:   s.EndedAt,
				Frames:    s.Frames,
				Located:   s.Located,
				Snapshots: s.Snapshots,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// SessionEventsHandler returns the track log of the session given by "id".
// "limit" keeps only the latest events.
func SessionEventsHandler(repos Repositories, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		session, err := repos.Sessions.GetByID(id)
		if err != nil {
			logger.Error("Error loading session %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if session == nil {
			http.NotFound(w, r)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := repos.TrackEvents.GetBySession(id, limit)
		if err != nil {
			logger.Error("Error loading events for %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		selections, err := repos.Selections.GetBySession(id)
		if err != nil {
			logger.Error("Error loading selections for %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := dto.SessionEventsData{
			SessionID:  id,
			Selections: len(selections),
			Events:     make([]dto.TrackEventInfo, 0, len(events)),
			Snapshots:  []string{},
		}
		for _, ev := range events {
			data.Events = append(data.Events, dto.TrackEventInfo{
				Frame:   ev.Frame,
				Located: ev.Located,
				X:       ev.Center.X,
				Y:       ev.Center.Y,
				Angle:   ev.Angle,
				Matches: ev.Matches,
				Inliers: ev.Inliers,
				Failure: ev.Failure,
			})
		}

		if repos.Snapshots != nil {
			snaps, err := repos.Snapshots.GetBySession(id)
			if err != nil {
				logger.Error("Error loading snapshots for %s: %v", id, err)
			}
			for _, s := range snaps {
				data.Snapshots = append(data.Snapshots, s.Filename)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewSnapshotHandler serves a snapshot named by the "name" parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "name parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.SnapshotDirectory, filepath.Base(name)))
	}
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date in the HTML input format, 2006-01-02.
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
