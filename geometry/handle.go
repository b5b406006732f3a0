package geometry

// Handle 标识选中框上的拖拽手柄。
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// ActiveHandles lists the grips drawn around a selected element. n and s are
// not offered: only width and font size can be resized.
var ActiveHandles = []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleE, HandleW}

// ParseHandle 解析手柄名称，未知名称返回 false。
func ParseHandle(s string) (Handle, bool) {
	switch h := Handle(s); h {
	case HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW:
		return h, true
	default:
		return "", false
	}
}

// LocalOffset returns the handle position inside a w×h box in element-local space.
func (h Handle) LocalOffset(w, hgt float64) Point {
	switch h {
	case HandleNW:
		return Point{}
	case HandleN:
		return Point{X: w / 2}
	case HandleNE:
		return Point{X: w}
	case HandleE:
		return Point{X: w, Y: hgt / 2}
	case HandleSE:
		return Point{X: w, Y: hgt}
	case HandleS:
		return Point{X: w / 2, Y: hgt}
	case HandleSW:
		return Point{Y: hgt}
	case HandleW:
		return Point{Y: hgt / 2}
	default:
		return Point{}
	}
}

// HandlePoint 返回手柄在屏幕空间中的位置。
func HandlePoint(anchor Point, w, hgt, deg float64, h Handle) Point {
	return ToScreen(anchor, deg, h.LocalOffset(w, hgt))
}

// HandleAt 返回距离 p 不超过 radius 的第一个可用手柄。
func HandleAt(anchor Point, w, hgt, deg float64, p Point, radius float64) (Handle, bool) {
	for _, h := range ActiveHandles {
		c := HandlePoint(anchor, w, hgt, deg, h)
		dx, dy := p.X-c.X, p.Y-c.Y
		if dx*dx+dy*dy <= radius*radius {
			return h, true
		}
	}
	return "", false
}
