package tracking

import (
	"fmt"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
	"templatetracker/internal/services/vision"
)

// SelectionHandler receives the stages of a rectangle selection drawn by the
// user over the live view.
type SelectionHandler interface {
	OnSelectionStarted()
	OnSelectionUpdated(r geometry.Rectangle)
	OnSelectionFinished(r geometry.Rectangle) error
	OnSelectionCancelled()
}

// Session ties a Tracker to interactive selection. It remembers the most
// recent frame so that a finished selection can be cut from it, and draws the
// pending rectangle while no template is set.
//
// Like the Tracker, a Session is used from a single goroutine.
type Session struct {
	tracker *Tracker

	pending    geometry.Rectangle
	hasPending bool
	last       gocv.Mat
}

var _ SelectionHandler = (*Session)(nil)

func NewSession(tracker *Tracker) *Session {
	return &Session{
		tracker: tracker,
		last:    gocv.NewMat(),
	}
}

func (s *Session) Tracker() *Tracker {
	return s.tracker
}

// Pending returns the rectangle currently being dragged, if any.
func (s *Session) Pending() (geometry.Rectangle, bool) {
	return s.pending, s.hasPending
}

// OnSelectionStarted drops the current template so a new one can be drawn.
func (s *Session) OnSelectionStarted() {
	s.tracker.ClearTemplate()
	s.hasPending = false
}

func (s *Session) OnSelectionUpdated(r geometry.Rectangle) {
	s.pending = r.Normalize()
	s.hasPending = true
}

// OnSelectionFinished turns r into the template, cut from the last processed
// frame.
func (s *Session) OnSelectionFinished(r geometry.Rectangle) error {
	s.hasPending = false
	if s.last.Empty() {
		return fmt.Errorf("finish selection: no frame yet: %w", vision.ErrEmptyImage)
	}
	return s.tracker.SetTemplate(s.last, r)
}

func (s *Session) OnSelectionCancelled() {
	s.tracker.ClearTemplate()
	s.hasPending = false
}

// Process runs one frame through the session. With a template it tracks;
// otherwise it returns a copy of the frame with the pending selection drawn.
func (s *Session) Process(frame gocv.Mat) (Result, error) {
	if frame.Empty() {
		return Result{}, fmt.Errorf("process frame: %w", vision.ErrEmptyImage)
	}
	frame.CopyTo(&s.last)

	if s.tracker.HasTemplate() {
		return s.tracker.ProcessFrame(frame)
	}

	res := Result{Frame: frame.Clone()}
	if s.hasPending {
		DrawPending(&res.Frame, s.pending)
	}
	return res, nil
}

// Close releases the remembered frame and the tracker's template.
func (s *Session) Close() {
	s.last.Close()
	s.tracker.Close()
}
