package interaction

import (
	"math"

	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/scene"
)

// FontSizeSensitivity 为角手柄缩放字号时的阻尼系数：字号变化 = 合成位移 / FontSizeSensitivity。
const FontSizeSensitivity = 4.0

// ResizeStart captures the element state at pointer-down.
type ResizeStart struct {
	FontSize float64
	Width    float64
	Rotation float64
	Position geometry.Point
}

// ResizeResult is the element state after applying a resize delta.
type ResizeResult struct {
	FontSize float64
	Width    float64
	Position geometry.Point
	Changed  bool
}

// ApplyDrag 拖拽在屏幕空间内平移，不去旋转，也不做边界限制。
func ApplyDrag(startPosition, startPointer, pointer geometry.Point) geometry.Point {
	return startPosition.Add(pointer.Sub(startPointer))
}

// ApplyResize 根据手柄和屏幕位移 (dx, dy) 计算新的字号、宽度与位置。
// 位移先用起始旋转角去旋转到元素本地坐标系；尺寸在本地空间计算，
// 位置修正再旋转回屏幕空间。n、s 以及未知手柄不改变元素。
func ApplyResize(start ResizeStart, h geometry.Handle, dx, dy float64) ResizeResult {
	res := ResizeResult{FontSize: start.FontSize, Width: start.Width, Position: start.Position}
	ldx, ldy := geometry.RotateDelta(dx, dy, start.Rotation)

	var combined float64
	switch h {
	case geometry.HandleSE:
		combined = ldx + ldy
	case geometry.HandleSW:
		combined = -ldx + ldy
	case geometry.HandleNE:
		combined = ldx - ldy
	case geometry.HandleNW:
		combined = -ldx - ldy
	case geometry.HandleE:
		res.Width = math.Max(scene.MinWidth, round(start.Width+ldx))
		res.Changed = true
		return res
	case geometry.HandleW:
		res.Width = math.Max(scene.MinWidth, round(start.Width-ldx))
		// 左边缘移动的距离取实际宽度变化量，保证右边缘在下限截断时也保持不动
		shift := start.Width - res.Width
		sx, sy := geometry.Rotate(shift, 0, start.Rotation)
		res.Position = geometry.Point{X: start.Position.X + sx, Y: start.Position.Y + sy}
		res.Changed = true
		return res
	default:
		return res
	}
	res.FontSize = math.Max(scene.MinFontSize, round(start.FontSize+combined/FontSizeSensitivity))
	res.Changed = true
	return res
}

// round 采用四舍五入（.5 向正无穷方向），与浏览器端 Math.round 一致。
func round(v float64) float64 { return math.Floor(v + 0.5) }
