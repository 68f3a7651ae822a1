package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
)

// MinCorrespondences is the smallest number of point pairs that determines a
// homography.
const MinCorrespondences = 4

// Estimation defaults.
const (
	DefaultRansacThreshold  = 3.0   // max reprojection error, in pixels, for an inlier
	DefaultRansacMaxIters   = 2000  // RANSAC iterations
	DefaultRansacConfidence = 0.995 // RANSAC confidence level, between 0 and 1
	colinearTolerance       = 0.5   // pixels
)

// Estimate is the result of a successful homography fit.
type Estimate struct {
	H       geometry.Homography
	Inliers int
}

// HomographyEstimator fits a homography to point pairs with RANSAC.
type HomographyEstimator struct {
	Threshold  float64
	MaxIters   int
	Confidence float64
}

// NewHomographyEstimator returns an estimator with the default RANSAC
// parameters. Non-positive arguments fall back to the defaults.
func NewHomographyEstimator(threshold float64, maxIters int, confidence float64) *HomographyEstimator {
	if threshold <= 0 {
		threshold = DefaultRansacThreshold
	}
	if maxIters <= 0 {
		maxIters = DefaultRansacMaxIters
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultRansacConfidence
	}
	return &HomographyEstimator{
		Threshold:  threshold,
		MaxIters:   maxIters,
		Confidence: confidence,
	}
}

// Estimate returns the homography mapping src[i] onto dst[i].
//
// It fails with ErrInsufficientCorrespondences below MinCorrespondences pairs
// and with ErrDegenerateConfiguration when either point set is colinear or
// the fit does not produce an invertible matrix.
func (e *HomographyEstimator) Estimate(src, dst []geometry.Point2D) (Estimate, error) {
	if len(src) != len(dst) {
		return Estimate{}, fmt.Errorf("%w: %d source, %d destination", ErrMismatchedCorrespondences, len(src), len(dst))
	}
	if len(src) < MinCorrespondences {
		return Estimate{}, fmt.Errorf("%w: got %d, need %d", ErrInsufficientCorrespondences, len(src), MinCorrespondences)
	}
	if geometry.Colinear(src, colinearTolerance) || geometry.Colinear(dst, colinearTolerance) {
		return Estimate{}, fmt.Errorf("%w: points are colinear", ErrDegenerateConfiguration)
	}

	srcMat := pointsMat(src)
	defer srcMat.Close()
	dstMat := pointsMat(dst)
	defer dstMat.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	hMat := gocv.FindHomography(srcMat, dstMat, gocv.HomographyMethodRANSAC, e.Threshold, &mask, e.MaxIters, e.Confidence)
	defer hMat.Close()

	if hMat.Empty() || hMat.Rows() != 3 || hMat.Cols() != 3 {
		return Estimate{}, fmt.Errorf("%w: no homography found", ErrDegenerateConfiguration)
	}

	var h geometry.Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = hMat.GetDoubleAt(r, c)
		}
	}
	if _, err := h.Inverse(); err != nil {
		return Estimate{}, fmt.Errorf("%w: %w", ErrDegenerateConfiguration, err)
	}

	inliers := len(src)
	if !mask.Empty() {
		inliers = gocv.CountNonZero(mask)
	}

	return Estimate{H: h, Inliers: inliers}, nil
}

// pointsMat packs points into an N x 1 two-channel double matrix, the layout
// FindHomography expects.
func pointsMat(pts []geometry.Point2D) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV64FC2)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}

// HomographyMat converts h to a 3x3 double matrix for gocv warping calls.
func HomographyMat(h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}
	return m
}
