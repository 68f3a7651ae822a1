package dto

import (
	"fmt"

	"templatetracker/internal/geometry"
)

// Selection event types sent by the control websocket.
const (
	SelectionStarted   = "started"
	SelectionUpdated   = "updated"
	SelectionFinished  = "finished"
	SelectionCancelled = "cancelled"
)

// SelectionEvent is one step of a rectangle drag in the browser.
type SelectionEvent struct {
	Type string             `json:"type"`
	Rect geometry.Rectangle `json:"rect"`
}

// Validate checks the type and normalises the rectangle.
func (e *SelectionEvent) Validate() error {
	switch e.Type {
	case SelectionStarted, SelectionCancelled:
		return nil
	case SelectionUpdated, SelectionFinished:
		e.Rect = e.Rect.Normalize()
		if e.Rect.XMin < 0 || e.Rect.YMin < 0 {
			return fmt.Errorf("rectangle %+v has negative coordinates", e.Rect)
		}
		return nil
	default:
		return fmt.Errorf("unknown selection event type %q", e.Type)
	}
}
