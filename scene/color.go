package scene

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var namedColors = map[string]color.NRGBA{
	"black":       {A: 255},
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"red":         {R: 255, A: 255},
	"yellow":      {R: 255, G: 255, A: 255},
	"transparent": {},
}

// ParseColor 解析 CSS 颜色：#rgb、#rgba、#rrggbb、#rrggbbaa、rgb()、rgba() 以及少量颜色名。
func ParseColor(value string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return color.NRGBA{}, fmt.Errorf("颜色值为空")
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHexColor(value, strings.TrimPrefix(v, "#"))
	}
	if strings.HasPrefix(v, "rgb") {
		return parseFuncColor(value, v)
	}
	return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析", value)
}

func parseHexColor(raw, hex string) (color.NRGBA, error) {
	expand := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	switch len(hex) {
	case 3, 4:
		hex = expand(hex)
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析", raw)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析: %w", raw, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func parseFuncColor(raw, v string) (color.NRGBA, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析", raw)
	}
	parts := strings.Split(v[open+1:len(v)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 分量个数错误", raw)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析: %w", raw, err)
		}
		ch[i] = uint8(math.Round(math.Max(0, math.Min(255, f))))
	}
	alpha := 1.0
	if len(parts) == 4 {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析: %w", raw, err)
		}
		alpha = math.Max(0, math.Min(1, f))
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(math.Round(alpha * 255))}, nil
}

// NormalizeColor 把可解析的颜色统一成 #RRGGBB 或 #RRGGBBAA；无法解析时原样返回。
func NormalizeColor(value string) string {
	c, err := ParseColor(value)
	if err != nil {
		return value
	}
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
