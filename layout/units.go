package layout

import (
	"strconv"
	"strings"
)

// Unit represents the unit suffix of a preset value.
type Unit int

const (
	UnitNone    Unit = iota // 无单位数字，按 px 处理
	UnitPX                  // 像素
	UnitPT                  // 点
	UnitPercent             // 相对参考尺寸的百分比
	UnitFactor              // 倍数，例如行高 1.2x
	UnitDeg                 // 角度
)

// Conversion constants. 渲染器以 1mm = 1px 的比例驱动 canvas，字体系统使用 pt。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PtToPx = 96.0 / 72.0
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	case UnitFactor:
		return "x"
	case UnitDeg:
		return "deg"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Resolve converts the length into px. Percentages resolve against reference.
func (l Length) Resolve(reference float64) float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value * PtToPx
	case UnitPercent:
		return reference * l.Value / 100
	default:
		return l.Value
	}
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"deg", UnitDeg}, {"px", UnitPX}, {"pt", UnitPT}, {"%", UnitPercent}, {"x", UnitFactor}}

// ParseLength 解析带单位的数值，例如 "80px"、"12pt"、"50%"、"1.1x"、"-3deg"。
// 解析失败时 ok 为 false。
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}
