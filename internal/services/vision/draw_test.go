package vision

import (
	"testing"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
)

func changedPixels(a, b gocv.Mat) int {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}

func TestDrawFeatures(t *testing.T) {
	detector := NewFeatureDetector()
	defer detector.Close()

	img := SyntheticPattern(200, 200, 3)
	defer img.Close()
	features, err := detector.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	defer features.Close()
	if features.Len() == 0 {
		t.Fatal("pattern has no keypoints")
	}

	drawn := DrawFeatures(img, features.Keypoints)
	defer drawn.Close()
	if drawn.Cols() != img.Cols() || drawn.Rows() != img.Rows() {
		t.Fatalf("drawn size %dx%d, expected %dx%d", drawn.Cols(), drawn.Rows(), img.Cols(), img.Rows())
	}
	if changedPixels(img, drawn) == 0 {
		t.Error("keypoints were not drawn")
	}

	plain := DrawFeatures(img, nil)
	defer plain.Close()
	if changedPixels(img, plain) != 0 {
		t.Error("no keypoints should give an unchanged copy")
	}
}

func TestDrawMatches(t *testing.T) {
	detector := NewFeatureDetector()
	defer detector.Close()
	matcher := NewDescriptorMatcher()
	defer matcher.Close()

	original := SyntheticPattern(240, 240, 7)
	defer original.Close()
	transformed, err := TransformImage(original, geometry.Pt(0, 0), 30, 1)
	if err != nil {
		t.Fatalf("TransformImage failed: %v", err)
	}
	defer transformed.Close()

	reg, err := Register(detector, matcher, NewHomographyEstimator(0, 0, 0), original, transformed, DefaultKeepCount)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// An out-of-range match is skipped instead of crashing the native call.
	matches := append(reg.Matches, Match{QueryIdx: len(reg.OriginalKeypoints) + 5})
	out := DrawMatches(original, reg.OriginalKeypoints, transformed, reg.TransformedKeypoints, matches)
	defer out.Close()

	if out.Cols() != original.Cols()+transformed.Cols() || out.Rows() != original.Rows() {
		t.Errorf("match image %dx%d, expected %dx%d", out.Cols(), out.Rows(), original.Cols()+transformed.Cols(), original.Rows())
	}
}
