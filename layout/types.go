// Package layout 定义文字测量与折行的契约。
// 预览尺寸计算与最终导出必须共用同一个 Measurer 实例，才能保证两边折行一致。
package layout

// Font describes the typography inputs that affect measured width.
type Font struct {
	Family        string  `json:"family"`
	Size          float64 `json:"size"`          // px
	LetterSpacing float64 `json:"letterSpacing"` // 每个字符后追加的 px
}

// Line 表示折行后的一行文本及其渲染宽度（px）。
type Line struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// Measurer 负责根据字体与宽度约束把文本拆成行。
type Measurer interface {
	MeasureLines(text string, font Font, maxWidth float64) ([]Line, error)
}

// WidthFunc returns the rendered width of s.
type WidthFunc func(s string) float64

// BlockHeight 计算多行文本块高度：(n−1)·fontSize·lineHeight + fontSize。
func BlockHeight(lines int, fontSize, lineHeight float64) float64 {
	if lines <= 0 {
		return 0
	}
	return float64(lines-1)*fontSize*lineHeight + fontSize
}

// MeasureHeight wraps text with m and returns the block height.
func MeasureHeight(m Measurer, text string, font Font, maxWidth, lineHeight float64) (float64, error) {
	lines, err := m.MeasureLines(text, font, maxWidth)
	if err != nil {
		return 0, err
	}
	return BlockHeight(len(lines), font.Size, lineHeight), nil
}
