package canvasrenderer

import (
	"image"
	"image/color"
	"math"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/draw"

	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/scene"
)

// 选中框样式（显示尺寸，px）。
const (
	HandleSize         = 10.0
	selectionLineWidth = 2.0
)

var selectionColor = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}

// Preview 以显示宽度渲染预览图：底图按比例缩小，图层按显示尺寸绘制，
// 活动元素额外绘制选中框与六个手柄。displayWidth ≤ 0 时使用原图宽度。
func (r *Renderer) Preview(base []byte, elements []scene.TextElement, displayWidth int, activeID string) ([]byte, error) {
	img, _, err := renderer.Decode(base)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if displayWidth <= 0 {
		displayWidth = b.Dx()
	}
	height := int(math.Round(float64(b.Dy()) * float64(displayWidth) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, displayWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var passes []*pass
	var active *scene.TextElement
	for i, el := range elements {
		p, err := r.plan(el, 1)
		if err != nil {
			return nil, err
		}
		ps, err := r.elementPasses(p, dst.Bounds())
		if err != nil {
			return nil, err
		}
		passes = append(passes, ps...)
		if activeID != "" && el.ID == activeID {
			active = &elements[i]
		}
	}
	if active != nil {
		if ps := selectionPass(*active, dst.Bounds()); ps != nil {
			passes = append(passes, ps)
		}
	}
	if err := r.render(dst, passes); err != nil {
		return nil, err
	}
	return encodePNG(dst)
}

// selectionPass 绘制旋转后的选中框以及 ActiveHandles 中的手柄。
// 图层只覆盖旋转包围盒外扩手柄尺寸的区域；完全落在画面外时返回 nil。
func selectionPass(el scene.TextElement, bounds image.Rectangle) *pass {
	box := geometry.RotatedBounds(el.Position, el.Width, el.Height, el.Rotation)
	pad := HandleSize/2 + selectionLineWidth
	region := image.Rect(
		int(math.Floor(box.X-pad)), int(math.Floor(box.Y-pad)),
		int(math.Ceil(box.X+box.W+pad)), int(math.Ceil(box.Y+box.H+pad)),
	).Intersect(bounds)
	if region.Empty() {
		return nil
	}
	s := newSurface(region)

	outline := &canvas.Path{}
	corners := geometry.Corners(el.Position, el.Width, el.Height, el.Rotation)
	outline.MoveTo(corners[0].X, corners[0].Y)
	for _, c := range corners[1:] {
		outline.LineTo(c.X, c.Y)
	}
	outline.Close()
	s.setStroke(selectionColor, selectionLineWidth)
	s.drawPath(outline)

	half := HandleSize / 2
	for _, h := range geometry.ActiveHandles {
		c := geometry.HandlePoint(el.Position, el.Width, el.Height, el.Rotation, h)
		grip := &canvas.Path{}
		grip.MoveTo(c.X-half, c.Y-half)
		grip.LineTo(c.X+half, c.Y-half)
		grip.LineTo(c.X+half, c.Y+half)
		grip.LineTo(c.X-half, c.Y+half)
		grip.Close()
		s.ctx.SetFillColor(color.White)
		s.ctx.SetStrokeColor(selectionColor)
		s.ctx.SetStrokeWidth(1.5)
		s.drawPath(grip)
	}
	return &pass{surface: s}
}
