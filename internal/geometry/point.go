package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point2D is a location in image pixel coordinates.
type Point2D struct {
	X float64
	Y float64
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// ImagePoint rounds the point to the nearest integer pixel.
func (p Point2D) ImagePoint() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// Rectangle is an axis-aligned box in pixels. XMin <= XMax and YMin <= YMax
// always hold for rectangles built with NewRectangle.
type Rectangle struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// NewRectangle builds a rectangle from two opposite corners given in any order,
// the way a mouse drag reports them.
func NewRectangle(x1, y1, x2, y2 int) Rectangle {
	return Rectangle{
		XMin: min(x1, x2),
		YMin: min(y1, y2),
		XMax: max(x1, x2),
		YMax: max(y1, y2),
	}
}

// Normalize returns the rectangle with min/max swapped where needed.
func (r Rectangle) Normalize() Rectangle {
	return NewRectangle(r.XMin, r.YMin, r.XMax, r.YMax)
}

func (r Rectangle) Width() int {
	return r.XMax - r.XMin
}

func (r Rectangle) Height() int {
	return r.YMax - r.YMin
}

// Empty reports whether the rectangle covers no pixels.
func (r Rectangle) Empty() bool {
	return r.XMax <= r.XMin || r.YMax <= r.YMin
}

// ClipTo limits the rectangle to an image of the given size.
func (r Rectangle) ClipTo(width, height int) Rectangle {
	r = r.Normalize()
	return Rectangle{
		XMin: clamp(r.XMin, 0, width),
		YMin: clamp(r.YMin, 0, height),
		XMax: clamp(r.XMax, 0, width),
		YMax: clamp(r.YMax, 0, height),
	}
}

// Image converts to the standard library rectangle used by gocv.
func (r Rectangle) Image() image.Rectangle {
	return image.Rect(r.XMin, r.YMin, r.XMax, r.YMax)
}

// Center returns the middle of the rectangle.
func (r Rectangle) Center() Point2D {
	return Pt(float64(r.XMin+r.XMax)/2, float64(r.YMin+r.YMax)/2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Quad is a quadrilateral, usually a rectangle projected through a homography.
type Quad [4]Point2D

// Centroid is the mean of the four corners.
func (q Quad) Centroid() Point2D {
	var c Point2D
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	return Pt(c.X/4, c.Y/4)
}

// ImagePoints rounds every corner to integer pixels for drawing.
func (q Quad) ImagePoints() []image.Point {
	pts := make([]image.Point, len(q))
	for i, p := range q {
		pts[i] = p.ImagePoint()
	}
	return pts
}

// RectCorners returns the corners of a w x h box in the order
// (0,0), (0,h), (w,h), (w,0).
func RectCorners(width, height float64) Quad {
	return Quad{
		Pt(0, 0),
		Pt(0, height),
		Pt(width, height),
		Pt(width, 0),
	}
}
