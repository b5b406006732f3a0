package geometry

import "math"

// Affine 为行主序的二维仿射变换：
//
//	[ a b c ]
//	[ d e f ]
//
// (x', y') = (a·x + b·y + c, d·x + e·y + f)
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity is the identity transform.
var Identity = Affine{A: 1, E: 1}

// Apply transforms p.
func (t Affine) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// Mul composes two transforms: the result applies u first, then t.
func (t Affine) Mul(u Affine) Affine {
	return Affine{
		A: t.A*u.A + t.B*u.D,
		B: t.A*u.B + t.B*u.E,
		C: t.A*u.C + t.B*u.F + t.C,
		D: t.D*u.A + t.E*u.D,
		E: t.D*u.B + t.E*u.E,
		F: t.D*u.C + t.E*u.F + t.F,
	}
}

// Translate 在 t 之前先平移 (x, y)。
func (t Affine) Translate(x, y float64) Affine {
	return t.Mul(Affine{A: 1, C: x, E: 1, F: y})
}

// Rotate 在 t 之前先旋转 deg 度（y 轴向下时为顺时针）。
func (t Affine) Rotate(deg float64) Affine {
	sin, cos := math.Sincos(radians(deg))
	return t.Mul(Affine{A: cos, B: -sin, D: sin, E: cos})
}

// Scale 在 t 之前先缩放。
func (t Affine) Scale(sx, sy float64) Affine {
	return t.Mul(Affine{A: sx, E: sy})
}

// Inverse returns the inverse transform; ok is false when t is singular.
func (t Affine) Inverse() (Affine, bool) {
	det := t.A*t.E - t.B*t.D
	if math.Abs(det) < 1e-12 {
		return Affine{}, false
	}
	return Affine{
		A: t.E / det, B: -t.B / det, C: (t.B*t.F - t.C*t.E) / det,
		D: -t.D / det, E: t.A / det, F: (t.C*t.D - t.A*t.F) / det,
	}, true
}

// ElementTransform maps element-local coordinates (origin at the top-left
// anchor, y down) to screen coordinates.
func ElementTransform(anchor Point, deg float64) Affine {
	return Identity.Translate(anchor.X, anchor.Y).Rotate(deg)
}
