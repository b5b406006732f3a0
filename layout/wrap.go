package layout

import "strings"

// Wrap 使用贪心算法折行：先按显式换行拆段，每段按单个空格拆词，
// 逐词累积，候选行超出 maxWidth 时提交当前行并以溢出的词开启新行。
// 单个词即使超宽也不会被拆开，而是独占一行；maxWidth ≤ 0 时整段不折行。
// 同一段落的各行用单个空格拼回即得到原文。
func Wrap(text string, maxWidth float64, widthOf WidthFunc) []Line {
	text = strings.ReplaceAll(text, "\r", "")
	paragraphs := strings.Split(text, "\n")
	lines := make([]Line, 0, len(paragraphs))
	for _, p := range paragraphs {
		lines = append(lines, wrapParagraph(p, maxWidth, widthOf)...)
	}
	return lines
}

func wrapParagraph(p string, maxWidth float64, widthOf WidthFunc) []Line {
	if maxWidth <= 0 {
		return []Line{{Content: p, Width: widthOf(p)}}
	}

	var lines []Line
	var current string
	currentWidth := 0.0
	started := false

	for _, word := range strings.Split(p, " ") {
		if !started {
			current, currentWidth, started = word, widthOf(word), true
			continue
		}
		candidate := current + " " + word
		w := widthOf(candidate)
		if w > maxWidth {
			lines = append(lines, Line{Content: current, Width: currentWidth})
			current, currentWidth = word, widthOf(word)
			continue
		}
		current, currentWidth = candidate, w
	}
	lines = append(lines, Line{Content: current, Width: currentWidth})
	return lines
}
