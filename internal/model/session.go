package model

import (
	"time"

	"templatetracker/internal/geometry"
)

// Session is one run of the frame loop against a video source.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is running
}

// Selection is a template chosen by the user during a session.
type Selection struct {
	ID        int64
	SessionID string
	Rect      geometry.Rectangle
	Keypoints int
	CreatedAt time.Time
}

// TrackEvent is the outcome of tracking on a single frame.
type TrackEvent struct {
	ID        int64
	SessionID string
	Frame     int64
	Located   bool
	Center    geometry.Point2D
	Angle     float64
	Matches   int
	Inliers   int
	Failure   string
	CreatedAt time.Time
}

// Snapshot is an annotated frame written to disk when tracking is acquired.
type Snapshot struct {
	ID        int64
	SessionID string
	Filename  string
	FilePath  string
	FileSize  int64
	Timestamp time.Time
}

// SessionSummary aggregates a session's track events.
type SessionSummary struct {
	Session
	Frames    int
	Located   int
	Snapshots int
}
