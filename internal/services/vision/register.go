package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
)

// Registration describes how a transformed image maps back onto the original.
type Registration struct {
	// H maps points in the transformed image onto the original image.
	H geometry.Homography
	// Angle is the rotation, in degrees, that was applied to the original.
	Angle float64

	Matches []Match
	Inliers int

	// Keypoints of both images. Matches index into them, QueryIdx into
	// OriginalKeypoints and TrainIdx into TransformedKeypoints.
	OriginalKeypoints    []gocv.KeyPoint
	TransformedKeypoints []gocv.KeyPoint
}

// Register matches original against transformed and recovers the transform
// between them. The original is the query side of the match.
func Register(detector *FeatureDetector, matcher *DescriptorMatcher, estimator *HomographyEstimator,
	original, transformed gocv.Mat, keepCount int) (Registration, error) {

	origFeatures, err := detector.Detect(original)
	if err != nil {
		return Registration{}, fmt.Errorf("original: %w", err)
	}
	defer origFeatures.Close()

	transFeatures, err := detector.Detect(transformed)
	if err != nil {
		return Registration{}, fmt.Errorf("transformed: %w", err)
	}
	defer transFeatures.Close()

	reg := Registration{
		OriginalKeypoints:    append([]gocv.KeyPoint(nil), origFeatures.Keypoints...),
		TransformedKeypoints: append([]gocv.KeyPoint(nil), transFeatures.Keypoints...),
	}

	matches := FilterMatches(matcher.Match(origFeatures.Descriptors, transFeatures.Descriptors), keepCount)
	reg.Matches = matches

	src, dst := Correspondences(matches, &transFeatures, &origFeatures)
	est, err := estimator.Estimate(src, dst)
	if err != nil {
		return reg, err
	}

	angle, err := est.H.RotationAngle()
	if err != nil {
		return reg, fmt.Errorf("%w: %w", ErrDegenerateConfiguration, err)
	}

	reg.H = est.H
	reg.Angle = angle
	reg.Inliers = est.Inliers
	return reg, nil
}

// Correspondences turns matches into paired point lists: src holds the
// reference (TrainIdx) locations, dst the query (QueryIdx) locations.
func Correspondences(matches []Match, reference, query *Features) (src, dst []geometry.Point2D) {
	src = make([]geometry.Point2D, 0, len(matches))
	dst = make([]geometry.Point2D, 0, len(matches))
	for _, m := range matches {
		if m.TrainIdx < 0 || m.TrainIdx >= reference.Len() || m.QueryIdx < 0 || m.QueryIdx >= query.Len() {
			continue
		}
		sx, sy := reference.Point(m.TrainIdx)
		dx, dy := query.Point(m.QueryIdx)
		src = append(src, geometry.Pt(sx, sy))
		dst = append(dst, geometry.Pt(dx, dy))
	}
	return src, dst
}
