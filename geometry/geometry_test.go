package geometry

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-6 }

func TestRotateDeltaRoundTrip(t *testing.T) {
	for _, deg := range []float64{-270, -90, -33.3, 0, 15, 45, 90, 179.9, 360, 725} {
		for _, v := range []Point{{X: 30, Y: -10}, {X: -4.5, Y: 0.25}, {X: 0, Y: 100}} {
			lx, ly := RotateDelta(v.X, v.Y, deg)
			// 用 −θ 去旋转等价于正向旋转
			x, y := RotateDelta(lx, ly, -deg)
			if !near(x, v.X) || !near(y, v.Y) {
				t.Fatalf("deg=%g v=%v: round trip got (%g,%g)", deg, v, x, y)
			}
			fx, fy := Rotate(lx, ly, deg)
			if !near(fx, v.X) || !near(fy, v.Y) {
				t.Fatalf("deg=%g v=%v: Rotate inverse got (%g,%g)", deg, v, fx, fy)
			}
		}
	}
}

func TestRotateDeltaQuarterTurn(t *testing.T) {
	// 元素顺时针旋转 90°，屏幕向下的位移在本地坐标系里指向 +x
	x, y := RotateDelta(0, 10, 90)
	if !near(x, 10) || !near(y, 0) {
		t.Fatalf("expected (10,0), got (%g,%g)", x, y)
	}
}

func TestGradientAxisVertical(t *testing.T) {
	x0, y0, x1, y1 := GradientAxis(0, 200, 100)
	if !near(x0, 100) || !near(y0, 0) || !near(x1, 100) || !near(y1, 100) {
		t.Fatalf("unexpected axis (%g,%g)->(%g,%g)", x0, y0, x1, y1)
	}
}

func TestGradientAxisHorizontal(t *testing.T) {
	x0, y0, x1, y1 := GradientAxis(90, 200, 100)
	if !near(x0, 0) || !near(y0, 50) || !near(x1, 200) || !near(y1, 50) {
		t.Fatalf("unexpected axis (%g,%g)->(%g,%g)", x0, y0, x1, y1)
	}
}

func TestGradientAxisCenteredAndOnEdges(t *testing.T) {
	w, h := 300.0, 80.0
	for _, deg := range []float64{10, 45, 135, 200, 300} {
		x0, y0, x1, y1 := GradientAxis(deg, w, h)
		if !near((x0+x1)/2, w/2) || !near((y0+y1)/2, h/2) {
			t.Fatalf("deg=%g: axis not centered", deg)
		}
		onEdge := func(x, y float64) bool {
			return near(x, 0) || near(x, w) || near(y, 0) || near(y, h)
		}
		if !onEdge(x0, y0) || !onEdge(x1, y1) {
			t.Fatalf("deg=%g: endpoints (%g,%g) (%g,%g) not on edges", deg, x0, y0, x1, y1)
		}
	}
}

func TestRotatedBoundsAndHitBox(t *testing.T) {
	anchor := Point{X: 100, Y: 100}
	b := RotatedBounds(anchor, 100, 50, 90)
	if !near(b.X, 50) || !near(b.Y, 100) || !near(b.W, 50) || !near(b.H, 100) {
		t.Fatalf("unexpected bounds %+v", b)
	}
	if !HitBox(anchor, 100, 50, 90, Point{X: 75, Y: 150}) {
		t.Fatalf("expected point inside rotated box")
	}
	if HitBox(anchor, 100, 50, 90, Point{X: 150, Y: 110}) {
		t.Fatalf("expected point outside rotated box")
	}
}

func TestAffineMatchesRotate(t *testing.T) {
	anchor := Point{X: 12, Y: -3}
	m := ElementTransform(anchor, 33)
	local := Point{X: 40, Y: 7}
	got := m.Apply(local)
	want := ToScreen(anchor, 33, local)
	if math.Abs(got.X-want.X) > eps || math.Abs(got.Y-want.Y) > eps {
		t.Fatalf("affine %v != rotate %v", got, want)
	}
	inv, ok := m.Inverse()
	if !ok {
		t.Fatalf("expected invertible transform")
	}
	back := inv.Apply(got)
	if !near(back.X, local.X) || !near(back.Y, local.Y) {
		t.Fatalf("inverse mismatch: %v", back)
	}
}

func TestHandleAt(t *testing.T) {
	anchor := Point{X: 0, Y: 0}
	h, ok := HandleAt(anchor, 200, 100, 0, Point{X: 198, Y: 52}, 6)
	if !ok || h != HandleE {
		t.Fatalf("expected e handle, got %q ok=%v", h, ok)
	}
	if _, ok := HandleAt(anchor, 200, 100, 0, Point{X: 100, Y: 0}, 6); ok {
		t.Fatalf("n handle must not be offered")
	}
	if _, ok := ParseHandle("x"); ok {
		t.Fatalf("unknown handle accepted")
	}
}
