package tracking

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
	"templatetracker/internal/services/vision"
)

// Detector finds keypoints and descriptors in an image.
type Detector interface {
	Detect(img gocv.Mat) (vision.Features, error)
}

// Matcher pairs every query descriptor with its nearest reference descriptor.
type Matcher interface {
	Match(query, reference gocv.Mat) []vision.Match
}

// Estimator fits a homography mapping src[i] onto dst[i].
type Estimator interface {
	Estimate(src, dst []geometry.Point2D) (vision.Estimate, error)
}

// State of a Tracker.
type State int

const (
	NoTemplate State = iota
	HasTemplate
)

func (s State) String() string {
	switch s {
	case NoTemplate:
		return "no_template"
	case HasTemplate:
		return "has_template"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Template is the region being tracked.
type Template struct {
	Image    gocv.Mat
	Features vision.Features
	Rect     geometry.Rectangle
}

func (t *Template) close() {
	t.Image.Close()
	t.Features.Close()
}

// Result of processing one frame. Frame is always a new Mat owned by the
// caller, annotated with the template outline when Located is true.
type Result struct {
	Frame   gocv.Mat
	Located bool
	Quad    geometry.Quad
	Angle   float64

	Keypoints int
	Matches   int
	Inliers   int

	// Failure is set when the template was not found in this frame.
	Failure error
}

// Tracker follows one template region through a sequence of frames.
//
// A Tracker is not safe for concurrent use. The detector, matcher and
// estimator are borrowed, so closing them is up to the caller.
type Tracker struct {
	detector  Detector
	matcher   Matcher
	estimator Estimator
	keepCount int

	template *Template
}

// NewTracker builds a tracker with no template. keepCount bounds how many of
// the best matches feed the estimator; zero or less means the default.
func NewTracker(detector Detector, matcher Matcher, estimator Estimator, keepCount int) *Tracker {
	if keepCount <= 0 {
		keepCount = vision.DefaultKeepCount
	}
	return &Tracker{
		detector:  detector,
		matcher:   matcher,
		estimator: estimator,
		keepCount: keepCount,
	}
}

func (t *Tracker) State() State {
	if t.template != nil {
		return HasTemplate
	}
	return NoTemplate
}

func (t *Tracker) HasTemplate() bool {
	return t.template != nil
}

// TemplateRect returns the frame rectangle the current template was cut from.
func (t *Tracker) TemplateRect() (geometry.Rectangle, bool) {
	if t.template == nil {
		return geometry.Rectangle{}, false
	}
	return t.template.Rect, true
}

// TemplateKeypoints returns how many keypoints the current template has.
func (t *Tracker) TemplateKeypoints() int {
	if t.template == nil {
		return 0
	}
	return t.template.Features.Len()
}

// TemplatePreview returns a copy of the template crop with its keypoints
// drawn. The caller owns the returned Mat.
func (t *Tracker) TemplatePreview() (gocv.Mat, error) {
	if t.template == nil {
		return gocv.Mat{}, fmt.Errorf("template preview: %w", ErrEmptyTemplate)
	}
	return vision.DrawFeatures(t.template.Image, t.template.Features.Keypoints), nil
}

// SetTemplate cuts rect out of frame and makes it the tracked template,
// replacing any previous one. The rectangle is clipped to the frame first.
// A template without keypoints is still accepted; it will just never be
// located.
func (t *Tracker) SetTemplate(frame gocv.Mat, rect geometry.Rectangle) error {
	if frame.Empty() {
		return fmt.Errorf("set template: %w", vision.ErrEmptyImage)
	}

	clipped := rect.ClipTo(frame.Cols(), frame.Rows())
	if clipped.Empty() {
		return fmt.Errorf("set template %+v: %w", rect, ErrInvalidRectangle)
	}

	region := frame.Region(clipped.Image())
	crop := region.Clone()
	region.Close()

	features, err := t.detector.Detect(crop)
	if err != nil {
		crop.Close()
		return fmt.Errorf("set template: %w", err)
	}

	t.ClearTemplate()
	t.template = &Template{
		Image:    crop,
		Features: features,
		Rect:     clipped,
	}
	return nil
}

// ClearTemplate drops the template. It is a no-op without one.
func (t *Tracker) ClearTemplate() {
	if t.template == nil {
		return
	}
	t.template.close()
	t.template = nil
}

// ProcessFrame looks for the template in frame.
//
// Without a template it returns ErrEmptyTemplate and does no work. When the
// template cannot be located, for instance because too few matches survive or
// they are degenerate, the error is nil and Result.Failure says why. The
// template is kept either way.
func (t *Tracker) ProcessFrame(frame gocv.Mat) (Result, error) {
	if t.template == nil {
		return Result{}, ErrEmptyTemplate
	}
	if frame.Empty() {
		return Result{}, fmt.Errorf("process frame: %w", vision.ErrEmptyImage)
	}

	features, err := t.detector.Detect(frame)
	if err != nil {
		return Result{}, fmt.Errorf("process frame: %w", err)
	}
	defer features.Close()

	res := Result{
		Frame:     frame.Clone(),
		Keypoints: features.Len(),
	}

	matches := vision.FilterMatches(t.matcher.Match(t.template.Features.Descriptors, features.Descriptors), t.keepCount)
	res.Matches = len(matches)

	// Frame points are the source so that H maps frame -> template.
	src, dst := vision.Correspondences(matches, &features, &t.template.Features)
	est, err := t.estimator.Estimate(src, dst)
	if err != nil {
		res.Failure = err
		return res, nil
	}
	res.Inliers = est.Inliers

	inv, err := est.H.Inverse()
	if err != nil {
		res.Failure = fmt.Errorf("%w: %w", vision.ErrDegenerateConfiguration, err)
		return res, nil
	}

	w, h := t.template.Rect.Width(), t.template.Rect.Height()
	quad := inv.ApplyQuad(geometry.RectCorners(float64(w), float64(h)))
	if !quadFinite(quad) {
		res.Failure = fmt.Errorf("%w: template projects to infinity", vision.ErrDegenerateConfiguration)
		return res, nil
	}

	if angle, err := est.H.RotationAngle(); err == nil {
		res.Angle = angle
	}

	res.Located = true
	res.Quad = quad
	DrawQuad(&res.Frame, quad)
	return res, nil
}

// Close releases the template.
func (t *Tracker) Close() {
	t.ClearTemplate()
}

func quadFinite(q geometry.Quad) bool {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}
