// Package scene 保存叠加在底图上的文字图层及当前选中状态。
// 所有修改都以整体替换快照的方式发布，观察者拿到的 Snapshot 不会再被修改。
package scene

import (
	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/layout"
)

// 缩放下限。
const (
	MinFontSize = 10
	MinWidth    = 50
)

// Align 为文本水平对齐方式。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign 解析对齐方式，无法识别时回退为 left。
func ParseAlign(s string) Align {
	switch Align(s) {
	case AlignCenter, "middle":
		return AlignCenter
	case AlignRight, "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// TextElement is one overlay layer. Position, Width and Height live in the
// unscaled (display) space of the preview.
type TextElement struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Position geometry.Point `json:"position"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`

	FontFamily    string  `json:"fontFamily"`
	FontSize      float64 `json:"fontSize"`
	LetterSpacing float64 `json:"letterSpacing"`
	LineHeight    float64 `json:"lineHeight"`
	TextAlign     Align   `json:"textAlign"`

	Color          string  `json:"color"`
	UseGradient    bool    `json:"useGradient"`
	GradientColor1 string  `json:"gradientColor1"`
	GradientColor2 string  `json:"gradientColor2"`
	GradientAngle  float64 `json:"gradientAngle"`

	StrokeColor string  `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`

	ShadowColor   string  `json:"shadowColor"`
	ShadowBlur    float64 `json:"shadowBlur"`
	ShadowOffsetX float64 `json:"shadowOffsetX"`
	ShadowOffsetY float64 `json:"shadowOffsetY"`

	Rotation float64 `json:"rotation"`
}

// DefaultElement returns the attributes a freshly added layer starts with.
func DefaultElement() TextElement {
	return TextElement{
		Text:           "NOVO TEXTO",
		Position:       geometry.Point{X: 50, Y: 50},
		Width:          400,
		Height:         80,
		FontFamily:     "Anton",
		FontSize:       80,
		LineHeight:     1.1,
		TextAlign:      AlignLeft,
		Color:          "#FFFFFF",
		GradientColor1: "#FFD400",
		GradientColor2: "#FF6A00",
		GradientAngle:  0,
		StrokeColor:    "#000000",
		StrokeWidth:    4,
		ShadowColor:    "rgba(0,0,0,0.5)",
		ShadowBlur:     10,
		ShadowOffsetX:  4,
		ShadowOffsetY:  4,
	}
}

// Font returns the measurement font of the element.
func (e TextElement) Font() layout.Font {
	return layout.Font{Family: e.FontFamily, Size: e.FontSize, LetterSpacing: e.LetterSpacing}
}

// Contains reports whether screen point p falls inside the rotated element box.
func (e TextElement) Contains(p geometry.Point) bool {
	return geometry.HitBox(e.Position, e.Width, e.Height, e.Rotation, p)
}

// LayoutKey 汇总影响折行结果的字段；任一字段变化都需要重新测量高度。
type LayoutKey struct {
	Text          string
	Width         float64
	FontSize      float64
	LineHeight    float64
	LetterSpacing float64
	FontFamily    string
}

func (e TextElement) LayoutKey() LayoutKey {
	return LayoutKey{
		Text:          e.Text,
		Width:         e.Width,
		FontSize:      e.FontSize,
		LineHeight:    e.LineHeight,
		LetterSpacing: e.LetterSpacing,
		FontFamily:    e.FontFamily,
	}
}

// Patch 是对活动元素的部分更新，nil 字段保持不变。高度不在其中，只能由测量流程写入。
type Patch struct {
	Text     *string         `json:"text,omitempty"`
	Position *geometry.Point `json:"position,omitempty"`
	Width    *float64        `json:"width,omitempty"`

	FontFamily    *string  `json:"fontFamily,omitempty"`
	FontSize      *float64 `json:"fontSize,omitempty"`
	LetterSpacing *float64 `json:"letterSpacing,omitempty"`
	LineHeight    *float64 `json:"lineHeight,omitempty"`
	TextAlign     *Align   `json:"textAlign,omitempty"`

	Color          *string  `json:"color,omitempty"`
	UseGradient    *bool    `json:"useGradient,omitempty"`
	GradientColor1 *string  `json:"gradientColor1,omitempty"`
	GradientColor2 *string  `json:"gradientColor2,omitempty"`
	GradientAngle  *float64 `json:"gradientAngle,omitempty"`

	StrokeColor *string  `json:"strokeColor,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`

	ShadowColor   *string  `json:"shadowColor,omitempty"`
	ShadowBlur    *float64 `json:"shadowBlur,omitempty"`
	ShadowOffsetX *float64 `json:"shadowOffsetX,omitempty"`
	ShadowOffsetY *float64 `json:"shadowOffsetY,omitempty"`

	Rotation *float64 `json:"rotation,omitempty"`
}

// Apply merges p into e and returns the result. Font size and width are kept
// at or above their floors.
func (p Patch) Apply(e TextElement) TextElement {
	setString(&e.Text, p.Text)
	if p.Position != nil {
		e.Position = *p.Position
	}
	setFloat(&e.Width, p.Width)
	setString(&e.FontFamily, p.FontFamily)
	setFloat(&e.FontSize, p.FontSize)
	setFloat(&e.LetterSpacing, p.LetterSpacing)
	setFloat(&e.LineHeight, p.LineHeight)
	if p.TextAlign != nil {
		e.TextAlign = ParseAlign(string(*p.TextAlign))
	}
	setString(&e.Color, p.Color)
	if p.UseGradient != nil {
		e.UseGradient = *p.UseGradient
	}
	setString(&e.GradientColor1, p.GradientColor1)
	setString(&e.GradientColor2, p.GradientColor2)
	setFloat(&e.GradientAngle, p.GradientAngle)
	setString(&e.StrokeColor, p.StrokeColor)
	setFloat(&e.StrokeWidth, p.StrokeWidth)
	setString(&e.ShadowColor, p.ShadowColor)
	setFloat(&e.ShadowBlur, p.ShadowBlur)
	setFloat(&e.ShadowOffsetX, p.ShadowOffsetX)
	setFloat(&e.ShadowOffsetY, p.ShadowOffsetY)
	setFloat(&e.Rotation, p.Rotation)
	return clampFloors(e)
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func clampFloors(e TextElement) TextElement {
	if e.FontSize < MinFontSize {
		e.FontSize = MinFontSize
	}
	if e.Width < MinWidth {
		e.Width = MinWidth
	}
	if e.StrokeWidth < 0 {
		e.StrokeWidth = 0
	}
	if e.ShadowBlur < 0 {
		e.ShadowBlur = 0
	}
	e.TextAlign = ParseAlign(string(e.TextAlign))
	return e
}
