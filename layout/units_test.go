package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度。
func TestPtMmRoundTrip(t *testing.T) {
	for _, pt := range []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000} {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want Length
	}{
		{in: "80px", want: Length{Value: 80, Unit: UnitPX}},
		{in: "80", want: Length{Value: 80, Unit: UnitNone}},
		{in: " 1.1x ", want: Length{Value: 1.1, Unit: UnitFactor}},
		{in: "-3deg", want: Length{Value: -3, Unit: UnitDeg}},
		{in: "50%", want: Length{Value: 50, Unit: UnitPercent}},
		{in: "12PT", want: Length{Value: 12, Unit: UnitPT}},
	}
	for _, tc := range cases {
		got, ok := ParseLength(tc.in)
		if !ok || got != tc.want {
			t.Fatalf("ParseLength(%q) = %+v, %v; want %+v", tc.in, got, ok, tc.want)
		}
	}
	for _, bad := range []string{"", "px", "abc", "1..2px"} {
		if _, ok := ParseLength(bad); ok {
			t.Fatalf("ParseLength(%q) should fail", bad)
		}
	}
}

// TestLengthResolve 覆盖百分比与 pt 到 px 的换算。
func TestLengthResolve(t *testing.T) {
	if got := (Length{Value: 25, Unit: UnitPercent}).Resolve(640); got != 160 {
		t.Fatalf("25%% of 640 期望 160，实际 %g", got)
	}
	if got := (Length{Value: 72, Unit: UnitPT}).Resolve(0); math.Abs(got-96) > 1e-9 {
		t.Fatalf("72pt 期望 96px，实际 %g", got)
	}
	if got := (Length{Value: 12, Unit: UnitPX}).Resolve(999); got != 12 {
		t.Fatalf("12px 期望 12，实际 %g", got)
	}
	if UnitToString(UnitDeg) != "deg" || UnitToString(UnitNone) != "" {
		t.Fatalf("UnitToString 结果不符")
	}
}
