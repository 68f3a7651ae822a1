package dto

import (
	"encoding/json"
	"time"
)

// SessionInfo summarises one tracking session for the history page.
type SessionInfo struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Frames    int       `json:"frames"`
	Located   int       `json:"located"`
	Snapshots int       `json:"snapshots"`
}

// MarshalJSON formats timestamps the way the UI displays them and leaves
// endedAt empty for a running session.
func (s SessionInfo) MarshalJSON() ([]byte, error) {
	type Alias SessionInfo
	ended := ""
	if !s.EndedAt.IsZero() {
		ended = s.EndedAt.Format("02-01-2006 15:04:05")
	}
	return json.Marshal(&struct {
		StartedAt string `json:"startedAt"`
		EndedAt   string `json:"endedAt"`
		Alias
	}{
		StartedAt: s.StartedAt.Format("02-01-2006 15:04:05"),
		EndedAt:   ended,
		Alias:     (Alias)(s),
	})
}

// SessionsData is a paginated response payload for the session history.
type SessionsData struct {
	Sessions    []SessionInfo `json:"sessions"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}

// SessionFilter narrows the session list.
type SessionFilter struct {
	Source string
	Since  time.Time
	Limit  int
	Offset int
}

// TrackEventInfo is one row of a session's track log.
type TrackEventInfo struct {
	Frame   int64   `json:"frame"`
	Located bool    `json:"located"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Angle   float64 `json:"angle"`
	Matches int     `json:"matches"`
	Inliers int     `json:"inliers"`
	Failure string  `json:"failure,omitempty"`
}

// SessionEventsData is the response of /api/sessions/events.
type SessionEventsData struct {
	SessionID  string           `json:"sessionId"`
	Selections int              `json:"selections"`
	Events     []TrackEventInfo `json:"events"`
	Snapshots  []string         `json:"snapshots"`
}
