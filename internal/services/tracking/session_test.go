package tracking

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
	"templatetracker/internal/services/vision"
)

func TestSession_FinishWithoutFrame(t *testing.T) {
	f := newFixture(t)
	session := NewSession(NewTracker(f.detector, f.matcher, f.estimator, 15))
	defer session.Close()

	err := session.OnSelectionFinished(geometry.NewRectangle(0, 0, 50, 50))
	if !errors.Is(err, vision.ErrEmptyImage) {
		t.Errorf("error = %v, expected ErrEmptyImage", err)
	}
}

func TestSession_SelectionLifecycle(t *testing.T) {
	f := newFixture(t)
	session := NewSession(NewTracker(f.detector, f.matcher, f.estimator, 15))
	defer session.Close()

	frame := f.scene(image.Pt(100, 80))
	defer frame.Close()

	res, err := session.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if pixelDiff(res.Frame, frame) != 0 {
		t.Error("frame without selection should be unchanged")
	}
	res.Frame.Close()

	session.OnSelectionStarted()
	session.OnSelectionUpdated(geometry.NewRectangle(230, 210, 90, 70))

	pending, ok := session.Pending()
	if !ok || pending != geometry.NewRectangle(90, 70, 230, 210) {
		t.Errorf("pending = %+v %v", pending, ok)
	}

	res, err = session.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Located || pixelDiff(res.Frame, frame) == 0 {
		t.Error("pending selection should be drawn")
	}
	res.Frame.Close()

	if err := session.OnSelectionFinished(pending); err != nil {
		t.Fatalf("OnSelectionFinished failed: %v", err)
	}
	if !session.Tracker().HasTemplate() {
		t.Fatal("finished selection should set the template")
	}
	if _, ok := session.Pending(); ok {
		t.Error("pending selection should be cleared once finished")
	}

	res, err = session.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Located {
		t.Errorf("template not located in its own frame: %v", res.Failure)
	}
	res.Frame.Close()

	session.OnSelectionStarted()
	if session.Tracker().HasTemplate() {
		t.Error("starting a selection should clear the template")
	}
}

func TestSession_Cancel(t *testing.T) {
	f := newFixture(t)
	session := NewSession(NewTracker(f.detector, f.matcher, f.estimator, 15))
	defer session.Close()

	frame := f.scene(image.Pt(100, 80))
	defer frame.Close()

	res, err := session.Process(frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	res.Frame.Close()

	if err := session.OnSelectionFinished(geometry.NewRectangle(90, 70, 230, 210)); err != nil {
		t.Fatalf("OnSelectionFinished failed: %v", err)
	}
	session.OnSelectionUpdated(geometry.NewRectangle(0, 0, 10, 10))
	session.OnSelectionCancelled()

	if session.Tracker().HasTemplate() {
		t.Error("cancel should clear the template")
	}
	if _, ok := session.Pending(); ok {
		t.Error("cancel should clear the pending rectangle")
	}
}

func TestSession_EmptyFrame(t *testing.T) {
	f := newFixture(t)
	session := NewSession(NewTracker(f.detector, f.matcher, f.estimator, 15))
	defer session.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := session.Process(empty); !errors.Is(err, vision.ErrEmptyImage) {
		t.Errorf("error = %v, expected ErrEmptyImage", err)
	}
}
