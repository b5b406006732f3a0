package canvasrenderer

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/thumbsmith/layout"
)

func TestMeasureLinesWrapsAtWordBoundary(t *testing.T) {
	r := NewRenderer()
	font := layout.Font{Family: "Anton", Size: 40}

	whole, err := r.MeasureLines("HELLO WORLD", font, 0)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if len(whole) != 1 {
		t.Fatalf("non-positive width must keep a single line, got %d", len(whole))
	}

	lines, err := r.MeasureLines("HELLO WORLD", font, whole[0].Width-1)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if len(lines) != 2 || lines[0].Content != "HELLO" || lines[1].Content != "WORLD" {
		t.Fatalf("expected HELLO / WORLD, got %+v", lines)
	}
	if strings.Join([]string{lines[0].Content, lines[1].Content}, " ") != "HELLO WORLD" {
		t.Fatalf("wrapping must not lose characters")
	}
}

func TestMeasureLinesHonorsNewlines(t *testing.T) {
	r := NewRenderer()
	lines, err := r.MeasureLines("foo\n\nbar", layout.Font{Size: 20}, 1000)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Content != "" || lines[1].Width != 0 {
		t.Fatalf("expected middle line to be blank, got %+v", lines[1])
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer()
	font := layout.Font{Family: "Inter", Size: 24}

	first := "SAMPLE A"
	measured, err := r.MeasureLines(first, font, 1e6)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	limit := measured[0].Width
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}

	lines, err := r.MeasureLines(first+"\nSAMPLE B", font, limit)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	if len(lines) != 2 || lines[0].Content != first || lines[1].Content != "SAMPLE B" {
		t.Fatalf("expected two lines without blank, got %+v", lines)
	}
}

func TestLetterSpacingAddsPerRune(t *testing.T) {
	r := NewRenderer()
	text := "SPACED"
	narrow, err := r.MeasureLines(text, layout.Font{Size: 30, LetterSpacing: 2}, 0)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	wide, err := r.MeasureLines(text, layout.Font{Size: 30, LetterSpacing: 5}, 0)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	want := 3 * float64(utf8.RuneCountInString(text))
	if diff := wide[0].Width - narrow[0].Width; math.Abs(diff-want) > 1e-6 {
		t.Fatalf("expected width to grow by %g, got %g", want, diff)
	}
}

func TestMeasureLinesIsCachedAndIsolated(t *testing.T) {
	r := NewRenderer()
	font := layout.Font{Size: 18}
	first, err := r.MeasureLines("cache me please", font, 60)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	first[0].Content = "mutated"
	second, err := r.MeasureLines("cache me please", font, 60)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if second[0].Content == "mutated" {
		t.Fatalf("cached lines must not alias caller slices")
	}
	if r.measured.ItemCount() != 1 {
		t.Fatalf("expected one cache entry, got %d", r.measured.ItemCount())
	}
}

func TestMeasureLinesRejectsNonPositiveSize(t *testing.T) {
	r := NewRenderer()
	if _, err := r.MeasureLines("x", layout.Font{Size: 0}, 100); err == nil {
		t.Fatalf("expected error for zero font size")
	}
}

func TestUnknownFamilyFallsBack(t *testing.T) {
	r := NewRenderer()
	known, err := r.MeasureLines("Fallback", layout.Font{Family: "Go", Size: 20}, 0)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	unknown, err := r.MeasureLines("Fallback", layout.Font{Family: "No Such Family", Size: 20}, 0)
	if err != nil {
		t.Fatalf("unknown family must not fail: %v", err)
	}
	if known[0].Width != unknown[0].Width {
		t.Fatalf("unknown family should measure with the regular builtin: %g vs %g", known[0].Width, unknown[0].Width)
	}
}
