// Package geometry 提供文字图层交互与合成共用的纯数学工具：
// 旋转感知的位移换算、旋转包围盒、渐变轴线以及仿射变换。
// 所有坐标都采用屏幕坐标系（原点左上角，y 轴向下），角度单位为度，顺时针为正。
package geometry

import "math"

// Point is a position or a vector in screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point     { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// RotateDelta 把屏幕位移 (dx, dy) 换算到旋转了 deg 度的元素本地坐标系（去旋转）。
//
//	dx' = dx·cosθ + dy·sinθ
//	dy' = −dx·sinθ + dy·cosθ
func RotateDelta(dx, dy, deg float64) (float64, float64) {
	sin, cos := math.Sincos(radians(deg))
	return dx*cos + dy*sin, -dx*sin + dy*cos
}

// Rotate 是 RotateDelta 的逆变换：把本地位移旋转回屏幕空间。
func Rotate(dx, dy, deg float64) (float64, float64) {
	sin, cos := math.Sincos(radians(deg))
	return dx*cos - dy*sin, dx*sin + dy*cos
}

// ToLocal converts a screen point into the local frame of an element whose
// top-left anchor is at anchor and which is rotated by deg around it.
func ToLocal(anchor Point, deg float64, p Point) Point {
	x, y := RotateDelta(p.X-anchor.X, p.Y-anchor.Y, deg)
	return Point{X: x, Y: y}
}

// ToScreen is the inverse of ToLocal.
func ToScreen(anchor Point, deg float64, local Point) Point {
	x, y := Rotate(local.X, local.Y, deg)
	return Point{X: anchor.X + x, Y: anchor.Y + y}
}

// Corners 返回以 anchor 为左上角、绕 anchor 旋转 deg 度的 w×h 矩形四个顶点，
// 顺序为左上、右上、右下、左下。
func Corners(anchor Point, w, h, deg float64) [4]Point {
	return [4]Point{
		ToScreen(anchor, deg, Point{}),
		ToScreen(anchor, deg, Point{X: w}),
		ToScreen(anchor, deg, Point{X: w, Y: h}),
		ToScreen(anchor, deg, Point{Y: h}),
	}
}

// RotatedBounds returns the axis-aligned bounding box of the rotated element box.
func RotatedBounds(anchor Point, w, h, deg float64) Rect {
	pts := Corners(anchor, w, h, deg)
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// HitBox 判断屏幕点 p 是否落在旋转后的元素框内。
func HitBox(anchor Point, w, h, deg float64, p Point) bool {
	local := ToLocal(anchor, deg, p)
	return Rect{W: w, H: h}.Contains(local)
}

// GradientAxis 计算填充渐变的轴线：线段经过 w×h 包围盒中心，方向由 deg 决定
// （从竖直方向量起，0° 为自上而下，90° 为自左向右），两端落在包围盒边缘上。
// 返回值位于包围盒的本地坐标系内。
func GradientAxis(deg, w, h float64) (x0, y0, x1, y1 float64) {
	sin, cos := math.Sincos(radians(deg))
	cx, cy := w/2, h/2

	half := math.Inf(1)
	if math.Abs(sin) > 1e-9 {
		half = math.Min(half, cx/math.Abs(sin))
	}
	if math.Abs(cos) > 1e-9 {
		half = math.Min(half, cy/math.Abs(cos))
	}
	if math.IsInf(half, 1) {
		half = 0
	}
	dx, dy := sin*half, cos*half
	return cx - dx, cy - dy, cx + dx, cy + dy
}
