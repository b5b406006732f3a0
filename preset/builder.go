package preset

import (
	"fmt"
	"strings"

	"github.com/ByLCY/thumbsmith/binding"
	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/scene"
)

// BuildOptions 控制图层求值。
type BuildOptions struct {
	// Measurer 用于计算图层高度，必须与预览/导出使用同一个实例。
	Measurer layout.Measurer
	// 百分比坐标的参考尺寸（显示空间，px）。
	DisplayWidth  float64
	DisplayHeight float64
	// Data 为 ${...} 占位符的数据来源。
	Data any
}

// Build 根据预设生成场景图层；图层 id 留空，由 scene.Store 分配。
func (p *Preset) Build(opts BuildOptions) ([]scene.TextElement, error) {
	if opts.Measurer == nil {
		return nil, fmt.Errorf("preset: 缺少文字测量后端 Measurer")
	}
	elements := make([]scene.TextElement, 0, len(p.Layers))
	for i, l := range p.Layers {
		attrs := mergeStyleAttributes(l.Style, l.Attrs, p.Styles)
		el, err := composeElement(attrs, opts)
		if err != nil {
			return nil, fmt.Errorf("图层 %d: %w", i, err)
		}
		el.Text = binding.Interpolate(l.Content, opts.Data)

		h, err := layout.MeasureHeight(opts.Measurer, el.Text, el.Font(), el.Width, el.LineHeight)
		if err != nil {
			return nil, fmt.Errorf("图层 %d: 测量高度失败: %w", i, err)
		}
		el.Height = h
		elements = append(elements, el)
	}
	return elements, nil
}

func composeElement(attrs map[string]string, opts BuildOptions) (scene.TextElement, error) {
	el := scene.DefaultElement()
	widthSet := false

	// 字号先于行高处理，px 行高需要换算成倍数
	if v, ok := attrs["size"]; ok {
		size, err := parseLength(v, opts.DisplayHeight)
		if err != nil {
			return el, fmt.Errorf("size: %w", err)
		}
		el.FontSize = size
	}

	for key, raw := range attrs {
		var err error
		switch key {
		case "size":
		case "x":
			el.Position.X, err = parseLength(raw, opts.DisplayWidth)
		case "y":
			el.Position.Y, err = parseLength(raw, opts.DisplayHeight)
		case "width":
			el.Width, err = parseLength(raw, opts.DisplayWidth)
			widthSet = true
		case "font":
			el.FontFamily = raw
		case "line-height":
			el.LineHeight, err = parseLineHeight(raw, el.FontSize)
		case "letter-spacing":
			el.LetterSpacing, err = parseLength(raw, el.FontSize)
		case "align":
			el.TextAlign = scene.ParseAlign(strings.ToLower(raw))
		case "color":
			el.Color, err = parseColor(raw)
		case "gradient-from":
			el.GradientColor1, err = parseColor(raw)
			el.UseGradient = true
		case "gradient-to":
			el.GradientColor2, err = parseColor(raw)
			el.UseGradient = true
		case "gradient-angle":
			el.GradientAngle, err = parseAngle(raw)
		case "stroke":
			el.StrokeColor, err = parseColor(raw)
		case "stroke-width":
			el.StrokeWidth, err = parseLength(raw, el.FontSize)
		case "shadow":
			el.ShadowColor, err = parseColor(raw)
		case "shadow-blur":
			el.ShadowBlur, err = parseLength(raw, el.FontSize)
		case "shadow-x":
			el.ShadowOffsetX, err = parseLength(raw, el.FontSize)
		case "shadow-y":
			el.ShadowOffsetY, err = parseLength(raw, el.FontSize)
		case "rotate":
			el.Rotation, err = parseAngle(raw)
		default:
			err = fmt.Errorf("未知属性")
		}
		if err != nil {
			return el, fmt.Errorf("%s: %w", key, err)
		}
	}

	if !widthSet && opts.DisplayWidth > 0 {
		el.Width = opts.DisplayWidth - el.Position.X
	}
	return scene.Patch{}.Apply(el), nil
}

func parseLength(value string, reference float64) (float64, error) {
	l, ok := layout.ParseLength(value)
	if !ok || l.Unit == layout.UnitDeg || l.Unit == layout.UnitFactor {
		return 0, fmt.Errorf("无效的长度 %q", value)
	}
	return l.Resolve(reference), nil
}

func parseLineHeight(value string, fontSize float64) (float64, error) {
	l, ok := layout.ParseLength(value)
	if !ok || l.Unit == layout.UnitDeg {
		return 0, fmt.Errorf("无效的行高 %q", value)
	}
	switch l.Unit {
	case layout.UnitNone, layout.UnitFactor:
		return l.Value, nil
	case layout.UnitPercent:
		return l.Value / 100, nil
	default:
		if fontSize <= 0 {
			return 0, fmt.Errorf("字号无效，无法换算行高 %q", value)
		}
		return l.Resolve(fontSize) / fontSize, nil
	}
}

func parseAngle(value string) (float64, error) {
	l, ok := layout.ParseLength(value)
	if !ok || (l.Unit != layout.UnitNone && l.Unit != layout.UnitDeg) {
		return 0, fmt.Errorf("无效的角度 %q", value)
	}
	return l.Value, nil
}

func parseColor(value string) (string, error) {
	if _, err := scene.ParseColor(value); err != nil {
		return "", err
	}
	return scene.NormalizeColor(value), nil
}
