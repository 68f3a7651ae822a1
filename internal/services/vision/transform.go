package vision

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
)

// AffineMatrix returns the 2x3 transform that rotates an image of the given
// size by rotationDeg degrees about its centre, scales it uniformly, then
// shifts it by translation. Positive angles turn counter-clockwise on screen,
// as with OpenCV's getRotationMatrix2D.
func AffineMatrix(width, height int, translation geometry.Point2D, rotationDeg, scale float64) [2][3]float64 {
	cx := float64(width) / 2
	cy := float64(height) / 2

	rad := rotationDeg * math.Pi / 180
	alpha := scale * math.Cos(rad)
	beta := scale * math.Sin(rad)

	return [2][3]float64{
		{alpha, beta, (1-alpha)*cx - beta*cy + translation.X},
		{-beta, alpha, beta*cx + (1-alpha)*cy + translation.Y},
	}
}

// AffineHomography lifts the 2x3 affine matrix to a homography.
func AffineHomography(a [2][3]float64) geometry.Homography {
	return geometry.Homography{
		{a[0][0], a[0][1], a[0][2]},
		{a[1][0], a[1][1], a[1][2]},
		{0, 0, 1},
	}
}

// TransformImage resamples img through AffineMatrix. The output keeps the
// input size; areas that fall outside are black. The caller closes the result.
func TransformImage(img gocv.Mat, translation geometry.Point2D, rotationDeg, scale float64) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("transform: %w", ErrEmptyImage)
	}
	if scale <= 0 {
		return gocv.NewMat(), fmt.Errorf("transform: scale must be positive, got %v", scale)
	}

	a := AffineMatrix(img.Cols(), img.Rows(), translation, rotationDeg, scale)
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, a[r][c])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpAffine(img, &dst, m, image.Pt(img.Cols(), img.Rows()))
	return dst, nil
}
