package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/scene"
)

var opaqueBlack = color.NRGBA{A: 255}

// Export 在底图原始分辨率上绘制全部图层并返回 PNG。
// 图层坐标、字号等均以显示尺寸保存，这里统一乘以 displayScale。
func (r *Renderer) Export(base []byte, elements []scene.TextElement, displayScale float64) ([]byte, error) {
	if !renderer.ValidScale(displayScale) {
		return nil, renderer.ErrInvalidScale
	}
	start := time.Now()
	img, _, err := renderer.Decode(base)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	if err := r.compose(dst, elements, displayScale); err != nil {
		return nil, err
	}
	out, err := encodePNG(dst)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("导出完成",
		"elements", len(elements),
		"width", b.Dx(),
		"height", b.Dy(),
		"scale", displayScale,
		"elapsed", time.Since(start),
	)
	return out, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// compose 依场景顺序为每个元素生成绘制批次；字形轮廓按顺序生成，栅格化并行执行，
// 最后再按顺序合成，保证相同输入得到逐字节相同的输出。
func (r *Renderer) compose(dst draw.Image, elements []scene.TextElement, scale float64) error {
	var passes []*pass
	for _, el := range elements {
		p, err := r.plan(el, scale)
		if err != nil {
			return err
		}
		ps, err := r.elementPasses(p, dst.Bounds())
		if err != nil {
			return err
		}
		passes = append(passes, ps...)
	}
	return r.render(dst, passes)
}

func (r *Renderer) render(dst draw.Image, passes []*pass) error {
	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for _, ps := range passes {
		ps := ps
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("栅格化图层失败: %v", rec)
				}
			}()
			ps.rasterize()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, ps := range passes {
		ps.composite(dst)
	}
	return nil
}

// elementPlan 为按导出比例换算后的单个图层绘制参数。
type elementPlan struct {
	id            string
	family        string
	fontSize      float64
	width         float64
	letterSpacing float64
	lineHeight    float64
	strokeWidth   float64
	shadowBlur    float64
	shadowOffset  geometry.Point
	position      geometry.Point
	rotation      float64
	align         scene.Align

	fill, stroke, shadow color.NRGBA
	gradient             bool
	gradFrom, gradTo     color.NRGBA
	gradAngle            float64

	lines       []layout.Line
	blockHeight float64
}

func (r *Renderer) plan(el scene.TextElement, scale float64) (elementPlan, error) {
	p := elementPlan{
		id:            el.ID,
		family:        el.FontFamily,
		fontSize:      el.FontSize * scale,
		width:         el.Width * scale,
		letterSpacing: el.LetterSpacing * scale,
		lineHeight:    el.LineHeight,
		strokeWidth:   math.Max(el.StrokeWidth, 0) * scale,
		shadowBlur:    math.Max(el.ShadowBlur, 0) * scale,
		shadowOffset:  geometry.Point{X: el.ShadowOffsetX * scale, Y: el.ShadowOffsetY * scale},
		position:      el.Position.Scale(scale),
		rotation:      el.Rotation,
		align:         scene.ParseAlign(string(el.TextAlign)),
		// 无法解析的颜色沿用画布默认值：填充与描边为黑色，阴影透明
		fill:      colorOr(el.Color, opaqueBlack),
		stroke:    colorOr(el.StrokeColor, opaqueBlack),
		shadow:    colorOr(el.ShadowColor, color.NRGBA{}),
		gradient:  el.UseGradient,
		gradFrom:  colorOr(el.GradientColor1, opaqueBlack),
		gradTo:    colorOr(el.GradientColor2, opaqueBlack),
		gradAngle: el.GradientAngle,
	}
	if !(p.fontSize > 0) {
		return p, fmt.Errorf("元素 %s 的字号无效: %g", el.ID, el.FontSize)
	}
	font := layout.Font{Family: p.family, Size: p.fontSize, LetterSpacing: p.letterSpacing}
	lines, err := r.MeasureLines(el.Text, font, p.width)
	if err != nil {
		return p, fmt.Errorf("测量元素 %s 失败: %w", el.ID, err)
	}
	p.lines = lines
	p.blockHeight = layout.BlockHeight(len(lines), p.fontSize, p.lineHeight)
	return p, nil
}

func colorOr(value string, fallback color.NRGBA) color.NRGBA {
	c, err := scene.ParseColor(value)
	if err != nil {
		return fallback
	}
	return c
}

func (p elementPlan) transform() geometry.Affine {
	return geometry.ElementTransform(p.position, p.rotation)
}

func (p elementPlan) lineTop(i int) float64 {
	return float64(i) * p.fontSize * p.lineHeight
}

func (p elementPlan) alignOffset(lineWidth float64) float64 {
	switch p.align {
	case scene.AlignCenter:
		return (p.width - lineWidth) / 2
	case scene.AlignRight:
		return p.width - lineWidth
	default:
		return 0
	}
}

func (p elementPlan) hasStroke() bool { return p.strokeWidth > 0 && p.stroke.A > 0 }

func (p elementPlan) hasShadow() bool {
	return p.shadow.A > 0 && (p.shadowBlur > 0 || p.shadowOffset.X != 0 || p.shadowOffset.Y != 0)
}

// bounds 返回字形可能覆盖的屏幕像素范围（含描边与下伸部余量）。
func (p elementPlan) bounds() image.Rectangle {
	if len(p.lines) == 0 {
		return image.Rectangle{}
	}
	pad := p.strokeWidth/2 + p.fontSize*0.25 + 2
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	t := p.transform()
	for i, ln := range p.lines {
		x0 := p.alignOffset(ln.Width) - pad
		x1 := x0 + ln.Width + 2*pad
		y0 := p.lineTop(i) - pad
		y1 := p.lineTop(i) + p.fontSize*1.3 + pad
		for _, c := range [4]geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}} {
			s := t.Apply(c)
			minX, maxX = math.Min(minX, s.X), math.Max(maxX, s.X)
			minY, maxY = math.Min(minY, s.Y), math.Max(maxY, s.Y)
		}
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

type glyphRun struct {
	path *canvas.Path
	x    float64
}

// shapedLine 为一行的字形轮廓；轮廓位于字形坐标系（y 轴向上，原点在基线起点）。
type shapedLine struct {
	runs     []glyphRun
	offset   float64
	baseline float64
}

func (r *Renderer) shape(p elementPlan) ([]shapedLine, error) {
	face, err := r.fontFace(p.family, p.fontSize)
	if err != nil {
		return nil, err
	}
	r.shapeMu.Lock()
	defer r.shapeMu.Unlock()

	ascent := face.Metrics().Ascent
	out := make([]shapedLine, 0, len(p.lines))
	for i, ln := range p.lines {
		runs, err := lineOutline(face, ln.Content, p.letterSpacing)
		if err != nil {
			return nil, fmt.Errorf("生成元素 %s 的字形轮廓失败: %w", p.id, err)
		}
		out = append(out, shapedLine{
			runs:     runs,
			offset:   p.alignOffset(ln.Width),
			baseline: p.lineTop(i) + ascent,
		})
	}
	return out, nil
}

func lineOutline(face *canvas.FontFace, content string, spacing float64) ([]glyphRun, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if spacing == 0 {
		path, _, err := face.ToPath(content)
		if err != nil {
			return nil, err
		}
		return []glyphRun{{path: path}}, nil
	}
	var runs []glyphRun
	x := 0.0
	for _, r := range content {
		s := string(r)
		if !unicode.IsSpace(r) {
			path, _, err := face.ToPath(s)
			if err != nil {
				return nil, err
			}
			runs = append(runs, glyphRun{path: path, x: x})
		}
		x += face.TextWidth(s) + spacing
	}
	return runs, nil
}

// elementPasses 生成单个元素的绘制批次，每行先描边后填充。
// 有阴影时描边与填充各自先合成一层模糊阴影，与浏览器 canvas 的 strokeText/fillText 顺序一致。
func (r *Renderer) elementPasses(p elementPlan, clip image.Rectangle) ([]*pass, error) {
	area := p.bounds()
	if area.Empty() {
		return nil, nil
	}
	lines, err := r.shape(p)
	if err != nil {
		return nil, err
	}
	m := p.transform()
	region := area.Intersect(clip)

	if !p.hasShadow() {
		if region.Empty() {
			return nil, nil
		}
		s := newSurface(region)
		for _, ln := range lines {
			if p.hasStroke() {
				s.strokeLine(m, ln, p.stroke, p.strokeWidth)
			}
			p.fillLine(s, m, ln)
		}
		return []*pass{{surface: s}}, nil
	}

	sigma := p.shadowBlur / 2
	margin := int(math.Ceil(sigma*3)) + 1
	off := image.Pt(int(math.Round(p.shadowOffset.X)), int(math.Round(p.shadowOffset.Y)))
	shadowRegion := area.Inset(-margin).Intersect(clip.Sub(off).Inset(-margin))

	var passes []*pass
	layer := func(region image.Rectangle, blur float64, offset image.Point, paint func(*surface)) {
		if region.Empty() {
			return
		}
		s := newSurface(region)
		paint(s)
		passes = append(passes, &pass{surface: s, blur: blur, offset: offset})
	}
	for _, ln := range lines {
		if p.hasStroke() {
			layer(shadowRegion, sigma, off, func(s *surface) { s.strokeLine(m, ln, p.shadow, p.strokeWidth) })
			layer(region, 0, image.Point{}, func(s *surface) { s.strokeLine(m, ln, p.stroke, p.strokeWidth) })
		}
		layer(shadowRegion, sigma, off, func(s *surface) { s.fillLine(m, ln, p.shadow) })
		layer(region, 0, image.Point{}, func(s *surface) { p.fillLine(s, m, ln) })
	}
	return passes, nil
}

// fillLine 以纯色或渐变填充一行字形。
func (p elementPlan) fillLine(s *surface, m geometry.Affine, ln shapedLine) {
	if !p.gradient {
		s.fillLine(m, ln, p.fill)
		return
	}
	s.ctx.SetStroke(nil)
	for _, run := range ln.runs {
		s.ctx.SetFillGradient(p.runGradient(ln, run))
		s.drawRun(m, ln, run)
	}
	s.ctx.ResetView()
}

// runGradient 构造单个字形段的线性渐变。canvas 的渐变坐标位于路径自身的坐标系，
// 因此把元素本地坐标下的渐变轴端点换算到该字形段的坐标系（y 轴向上，原点在段起点基线）。
func (p elementPlan) runGradient(ln shapedLine, run glyphRun) *canvas.LinearGradient {
	x0, y0, x1, y1 := geometry.GradientAxis(p.gradAngle, p.width, p.blockHeight)
	local := func(x, y float64) canvas.Point {
		return canvas.Point{X: x - ln.offset - run.x, Y: ln.baseline - y}
	}
	stops := canvas.NewGradient()
	stops.Add(0, premultiplied(p.gradFrom))
	stops.Add(1, premultiplied(p.gradTo))
	return stops.ToLinear(local(x0, y0), local(x1, y1))
}

func premultiplied(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// surface 对应目标图像中的一块矩形区域，绘制坐标与目标图像一致（y 轴向下）。
type surface struct {
	region image.Rectangle
	canvas *canvas.Canvas
	ctx    *canvas.Context
}

func newSurface(region image.Rectangle) *surface {
	c := canvas.New(float64(region.Dx()), float64(region.Dy()))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与图像保持左上角为原点
	ctx.SetStrokeJoiner(canvas.RoundJoin)
	ctx.SetStrokeCapper(canvas.RoundCap)
	return &surface{region: region, canvas: c, ctx: ctx}
}

func (s *surface) setStroke(c color.NRGBA, width float64) {
	s.ctx.SetFill(nil)
	s.ctx.SetStrokeColor(c)
	s.ctx.SetStrokeWidth(width)
}

func (s *surface) strokeLine(m geometry.Affine, line shapedLine, c color.NRGBA, width float64) {
	s.setStroke(c, width)
	s.drawLine(m, line)
}

func (s *surface) fillLine(m geometry.Affine, line shapedLine, c color.NRGBA) {
	s.ctx.SetStroke(nil)
	s.ctx.SetFillColor(c)
	s.drawLine(m, line)
}

// drawLine 以当前样式绘制一行字形，m 把元素本地坐标映射到屏幕坐标。
func (s *surface) drawLine(m geometry.Affine, line shapedLine) {
	for _, run := range line.runs {
		s.drawRun(m, line, run)
	}
	s.ctx.ResetView()
}

func (s *surface) drawRun(m geometry.Affine, line shapedLine, run glyphRun) {
	view := geometry.Identity.
		Translate(-float64(s.region.Min.X), -float64(s.region.Min.Y)).
		Mul(m).
		Translate(line.offset+run.x, line.baseline).
		Scale(1, -1)
	s.ctx.SetView(toMatrix(view))
	s.ctx.DrawPath(0, 0, run.path)
}

func (s *surface) drawPath(path *canvas.Path) {
	s.ctx.SetView(toMatrix(geometry.Identity.Translate(-float64(s.region.Min.X), -float64(s.region.Min.Y))))
	s.ctx.DrawPath(0, 0, path)
	s.ctx.ResetView()
}

func toMatrix(a geometry.Affine) canvas.Matrix {
	return canvas.Matrix{{a.A, a.B, a.C}, {a.D, a.E, a.F}}
}

// pass 是一次独立的栅格化与合成。
type pass struct {
	surface *surface
	blur    float64 // 高斯模糊 σ
	offset  image.Point
	out     image.Image
}

func (p *pass) rasterize() {
	img := rasterizer.Draw(p.surface.canvas, canvas.DPMM(1), canvas.DefaultColorSpace)
	if p.blur > 0 {
		p.out = imaging.Blur(img, p.blur)
		return
	}
	p.out = img
}

func (p *pass) composite(dst draw.Image) {
	if p.out == nil {
		return
	}
	draw.Draw(dst, p.surface.region.Add(p.offset), p.out, image.Point{}, draw.Over)
}
