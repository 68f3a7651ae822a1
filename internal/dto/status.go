package dto

import "templatetracker/internal/geometry"

// TrackerStatus is the live state reported by /api/status.
type TrackerStatus struct {
	SessionID string              `json:"sessionId"`
	Source    string              `json:"source"`
	State     string              `json:"state"`
	Width     int                 `json:"width"` // frame size in pixels, selections use these coordinates
	Height    int                 `json:"height"`
	Template  *geometry.Rectangle `json:"template,omitempty"`
	Located   bool                `json:"located"`
	Corners   []geometry.Point2D  `json:"corners,omitempty"`
	Angle     float64             `json:"angle"`
	Matches   int                 `json:"matches"`
	Inliers   int                 `json:"inliers"`
	Frames    int64               `json:"frames"`
	Failure   string              `json:"failure,omitempty"`
	Viewers   int                 `json:"viewers"`
}
