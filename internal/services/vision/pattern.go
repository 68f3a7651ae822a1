package vision

import (
	"image"
	"image/color"
	"math/rand"

	"gocv.io/x/gocv"
)

// SyntheticPattern draws a textured BGR image from seed: random filled
// rectangles, circles and lines on a gray background, lightly blurred. The
// same seed always produces the same image.
func SyntheticPattern(width, height int, seed int64) gocv.Mat {
	rng := rand.New(rand.NewSource(seed))
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(96, 96, 96, 0), height, width, gocv.MatTypeCV8UC3)

	randColor := func() color.RGBA {
		return color.RGBA{
			R: uint8(rng.Intn(256)),
			G: uint8(rng.Intn(256)),
			B: uint8(rng.Intn(256)),
			A: 255,
		}
	}
	randPoint := func() image.Point {
		return image.Pt(rng.Intn(width), rng.Intn(height))
	}

	shapes := max(width*height/800, 12)
	for i := 0; i < shapes; i++ {
		switch rng.Intn(3) {
		case 0:
			p := randPoint()
			w := 6 + rng.Intn(max(width/8, 8))
			h := 6 + rng.Intn(max(height/8, 8))
			gocv.Rectangle(&img, image.Rect(p.X, p.Y, p.X+w, p.Y+h), randColor(), -1)
		case 1:
			r := 4 + rng.Intn(max(min(width, height)/12, 6))
			gocv.Circle(&img, randPoint(), r, randColor(), -1)
		default:
			gocv.Line(&img, randPoint(), randPoint(), randColor(), 1+rng.Intn(3))
		}
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(img, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	img.Close()
	return blurred
}
