package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Features holds the keypoints found in one image and their descriptors.
// Row i of Descriptors describes Keypoints[i].
type Features struct {
	Keypoints   []gocv.KeyPoint
	Descriptors gocv.Mat
}

// Len returns the number of keypoints.
func (f *Features) Len() int {
	return len(f.Keypoints)
}

// Empty reports whether no usable keypoint was found.
func (f *Features) Empty() bool {
	return len(f.Keypoints) == 0 || f.Descriptors.Empty()
}

// Point returns the location of keypoint i.
func (f *Features) Point(i int) (x, y float64) {
	kp := f.Keypoints[i]
	return kp.X, kp.Y
}

// Close releases the descriptor matrix.
func (f *Features) Close() {
	f.Descriptors.Close()
	f.Keypoints = nil
}

// FeatureDetector finds AKAZE keypoints and binary descriptors. AKAZE is
// invariant to in-plane rotation and to moderate scale changes.
//
// A FeatureDetector is configured once at construction and must only be used
// from one goroutine at a time.
type FeatureDetector struct {
	akaze gocv.AKAZE
}

// NewFeatureDetector allocates the native detector. Call Close when done.
func NewFeatureDetector() *FeatureDetector {
	return &FeatureDetector{akaze: gocv.NewAKAZE()}
}

// Detect returns keypoints and descriptors for img. The result is
// deterministic for a given image. An image without enough texture yields
// empty Features and a nil error.
func (d *FeatureDetector) Detect(img gocv.Mat) (Features, error) {
	if img.Empty() {
		return Features{}, fmt.Errorf("detect: %w", ErrEmptyImage)
	}

	mask := gocv.NewMat()
	defer mask.Close()

	keypoints, descriptors := d.akaze.DetectAndCompute(img, mask)
	if len(keypoints) == 0 || descriptors.Empty() {
		descriptors.Close()
		return Features{Descriptors: gocv.NewMat()}, nil
	}

	return Features{Keypoints: keypoints, Descriptors: descriptors}, nil
}

// Close releases the native detector.
func (d *FeatureDetector) Close() error {
	return d.akaze.Close()
}
