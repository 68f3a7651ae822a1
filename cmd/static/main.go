package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"templatetracker/internal/config"
	"templatetracker/internal/geometry"
	"templatetracker/internal/logger"
	"templatetracker/internal/services/vision"
)

func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Image to register (a synthetic pattern is used when empty)")
	seed := flag.Int64("seed", 1, "Seed for the synthetic pattern")
	size := flag.Int("size", 512, "Side of the synthetic pattern in pixels")
	tx := flag.Float64("tx", 100, "Horizontal translation in pixels")
	ty := flag.Float64("ty", -100, "Vertical translation in pixels")
	rot := flag.Float64("rot", -10, "Rotation in degrees, counter-clockwise")
	scale := flag.Float64("scale", 1.25, "Scale factor")
	keep := flag.Int("keep", cfg.KeepMatches, "Number of best matches kept")
	outDir := flag.String("out", "out", "Directory for the result images")
	flag.Parse()

	l, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	if err := run(l, cfg, *imagePath, *seed, *size, geometry.Pt(*tx, *ty), *rot, *scale, *keep, *outDir); err != nil {
		l.Error("Registration failed: %v", err)
		l.Close()
		os.Exit(1)
	}
}

func run(l *logger.Logger, cfg *config.Config, imagePath string, seed int64, size int,
	translation geometry.Point2D, rot, scale float64, keep int, outDir string) error {

	var original gocv.Mat
	if imagePath != "" {
		original = gocv.IMRead(imagePath, gocv.IMReadColor)
		if original.Empty() {
			original.Close()
			return fmt.Errorf("could not read image %s", imagePath)
		}
		l.Info("Loaded %s (%dx%d)", imagePath, original.Cols(), original.Rows())
	} else {
		original = vision.SyntheticPattern(size, size, seed)
		l.Info("Using synthetic pattern %dx%d, seed %d", size, size, seed)
	}
	defer original.Close()

	transformed, err := vision.TransformImage(original, translation, rot, scale)
	if err != nil {
		return err
	}
	defer transformed.Close()

	detector := vision.NewFeatureDetector()
	defer detector.Close()
	matcher := vision.NewDescriptorMatcher()
	defer matcher.Close()
	estimator := vision.NewHomographyEstimator(cfg.RansacThreshold, cfg.RansacMaxIters, cfg.RansacConfidence)

	reg, err := vision.Register(detector, matcher, estimator, original, transformed, keep)
	if err != nil {
		return err
	}

	l.Info("Keypoints: original %d, transformed %d; kept %d matches, %d inliers",
		len(reg.OriginalKeypoints), len(reg.TransformedKeypoints), len(reg.Matches), reg.Inliers)
	l.Info("Homography: %s", reg.H)
	l.Info("Detected angle of rotation: %.2f degrees (applied %.2f)", reg.Angle, rot)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeResults(l, original, transformed, reg, outDir)
}

// writeResults saves the keypoints of both images, the kept matches, the
// transformed image warped back onto the original, and a 50/50 blend of the two.
func writeResults(l *logger.Logger, original, transformed gocv.Mat, reg vision.Registration, outDir string) error {
	originalKeypoints := vision.DrawFeatures(original, reg.OriginalKeypoints)
	defer originalKeypoints.Close()
	transformedKeypoints := vision.DrawFeatures(transformed, reg.TransformedKeypoints)
	defer transformedKeypoints.Close()

	matches := vision.DrawMatches(original, reg.OriginalKeypoints, transformed, reg.TransformedKeypoints, reg.Matches)
	defer matches.Close()

	h := vision.HomographyMat(reg.H)
	defer h.Close()
	registered := gocv.NewMat()
	defer registered.Close()
	gocv.WarpPerspective(transformed, &registered, h, image.Pt(original.Cols(), original.Rows()))

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(original, 0.5, registered, 0.5, 0, &blended)

	outputs := []struct {
		name string
		img  gocv.Mat
	}{
		{"transformed.jpg", transformed},
		{"keypoints.jpg", originalKeypoints},
		{"keypoints_transformed.jpg", transformedKeypoints},
		{"matches.jpg", matches},
		{"registered.jpg", registered},
		{"blended.jpg", blended},
	}
	for _, o := range outputs {
		path := filepath.Join(outDir, o.name)
		if !gocv.IMWrite(path, o.img) {
			return fmt.Errorf("failed to write %s", path)
		}
		l.Info("Wrote %s", path)
	}
	return nil
}
