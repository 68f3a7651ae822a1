package tracking

import (
	"image/color"

	"gocv.io/x/gocv"

	"templatetracker/internal/geometry"
)

var (
	trackColor   = color.RGBA{G: 255}
	pendingColor = color.RGBA{R: 255, G: 255}
)

const lineThickness = 2

// DrawQuad outlines q on img as a closed green polygon.
func DrawQuad(img *gocv.Mat, q geometry.Quad) {
	pts := q.ImagePoints()
	for i := range pts {
		gocv.Line(img, pts[i], pts[(i+1)%len(pts)], trackColor, lineThickness)
	}
}

// DrawPending outlines a selection that is still being dragged, in yellow.
func DrawPending(img *gocv.Mat, r geometry.Rectangle) {
	gocv.Rectangle(img, r.Image(), pendingColor, lineThickness)
}
