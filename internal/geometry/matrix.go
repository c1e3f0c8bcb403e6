package geometry

import "math"

// Matrix is a 2D affine transform [[a b c] [d e f]] mapping (x, y) to
// (a*x + b*y + c, d*x + e*y + f). Coordinates are y-down; a positive rotation
// turns clockwise on screen.
type Matrix [2][3]float64

var Identity = Matrix{{1, 0, 0}, {0, 1, 0}}

// Mul returns m*q: q is applied first.
func (m Matrix) Mul(q Matrix) Matrix {
	return Matrix{
		{
			m[0][0]*q[0][0] + m[0][1]*q[1][0],
			m[0][0]*q[0][1] + m[0][1]*q[1][1],
			m[0][0]*q[0][2] + m[0][1]*q[1][2] + m[0][2],
		},
		{
			m[1][0]*q[0][0] + m[1][1]*q[1][0],
			m[1][0]*q[0][1] + m[1][1]*q[1][1],
			m[1][0]*q[0][2] + m[1][1]*q[1][2] + m[1][2],
		},
	}
}

func (m Matrix) Translate(x, y float64) Matrix {
	return m.Mul(Matrix{{1, 0, x}, {0, 1, y}})
}

// Rotate rotates by deg degrees about the current origin.
func (m Matrix) Rotate(deg float64) Matrix {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return m.Mul(Matrix{{cos, -sin, 0}, {sin, cos, 0}})
}

func (m Matrix) Scale(sx, sy float64) Matrix {
	return m.Mul(Matrix{{sx, 0, 0}, {0, sy, 0}})
}

func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

func (m Matrix) Det() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// Inverse returns the inverse transform. A singular matrix yields Identity.
func (m Matrix) Inverse() Matrix {
	det := m.Det()
	if det == 0 {
		return Identity
	}
	a := m[1][1] / det
	b := -m[0][1] / det
	d := -m[1][0] / det
	e := m[0][0] / det
	return Matrix{
		{a, b, -(a*m[0][2] + b*m[1][2])},
		{d, e, -(d*m[0][2] + e*m[1][2])},
	}
}
