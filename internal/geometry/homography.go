package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a homography cannot be inverted.
var ErrSingular = errors.New("homography is not invertible")

// singularDeterminant bounds |det| below which a matrix is treated as singular.
const singularDeterminant = 1e-12

// Homography is a 3x3 projective transform, row major. It is defined up to
// scale, so the last row is not necessarily [0 0 1].
type Homography [3][3]float64

// Apply maps p through the transform, dividing by the projective coordinate.
// A point mapped to infinity comes back with infinite coordinates.
func (h Homography) Apply(p Point2D) Point2D {
	x := h[0][0]*p.X + h[0][1]*p.Y + h[0][2]
	y := h[1][0]*p.X + h[1][1]*p.Y + h[1][2]
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Pt(math.Inf(1), math.Inf(1))
	}
	return Pt(x/w, y/w)
}

// ApplyQuad maps every corner of q.
func (h Homography) ApplyQuad(q Quad) Quad {
	var out Quad
	for i, p := range q {
		out[i] = h.Apply(p)
	}
	return out
}

// Finite reports whether every entry is a finite number.
func (h Homography) Finite() bool {
	for _, row := range h {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// Determinant of the 3x3 matrix.
func (h Homography) Determinant() float64 {
	return mat.Det(h.dense())
}

// Inverse returns the inverse transform, or ErrSingular when the matrix is
// not finite, has a vanishing determinant, or is too ill-conditioned to invert.
func (h Homography) Inverse() (Homography, error) {
	if !h.Finite() {
		return Homography{}, fmt.Errorf("%w: non-finite entries", ErrSingular)
	}
	if math.Abs(h.Determinant()) < singularDeterminant {
		return Homography{}, fmt.Errorf("%w: determinant %.3g", ErrSingular, h.Determinant())
	}

	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	if !out.Finite() {
		return Homography{}, fmt.Errorf("%w: inverse has non-finite entries", ErrSingular)
	}
	return out, nil
}

// RotationAngle recovers the in-plane rotation, in degrees, of the transform
// that h undoes: it inverts h and returns atan2(inv[0][1], inv[0][0]).
//
// The value is only meaningful when h is a rotation, translation and uniform
// scale. Shear and perspective components are not separated out.
func (h Homography) RotationAngle() (float64, error) {
	inv, err := h.Inverse()
	if err != nil {
		return 0, err
	}
	return math.Atan2(inv[0][1], inv[0][0]) * 180 / math.Pi, nil
}

func (h Homography) String() string {
	return fmt.Sprintf("[[%.4f %.4f %.4f] [%.4f %.4f %.4f] [%.6f %.6f %.4f]]",
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2])
}

// Colinear reports whether all points lie within tol pixels of a single line.
// Fewer than three points, or points that all coincide, count as colinear.
func Colinear(pts []Point2D, tol float64) bool {
	if len(pts) < 3 {
		return true
	}

	// Anchor the line on the two points furthest apart.
	var a, b Point2D
	best := -1.0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := math.Hypot(pts[j].X-pts[i].X, pts[j].Y-pts[i].Y)
			if d > best {
				best = d
				a, b = pts[i], pts[j]
			}
		}
	}
	if best <= tol {
		return true
	}

	dx, dy := b.X-a.X, b.Y-a.Y
	for _, p := range pts {
		dist := math.Abs(dx*(p.Y-a.Y)-dy*(p.X-a.X)) / best
		if dist > tol {
			return false
		}
	}
	return true
}
