package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

var (
	fencePattern    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")
	listItemPattern = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
)

// Variation 为一条改写后的标题及需要强调的关键词。
type Variation struct {
	Text     string   `json:"text"`
	Keywords []string `json:"keywords"`
}

// ThumbnailPrompt 为图片生成提示词及其葡萄牙语译文。
type ThumbnailPrompt struct {
	EnglishPrompt         string `json:"englishPrompt"`
	PortugueseTranslation string `json:"portugueseTranslation"`
}

// FallbackVariations 在结构化结果无法解析时使用：每个非空行作为一条没有关键词的标题。
func FallbackVariations(raw string) []Variation {
	var out []Variation
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = listItemPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.Trim(line, `"`))
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		out = append(out, Variation{Text: line})
	}
	return out
}

// extractJSON 去掉代码块围栏与前后说明文字，返回第一个 JSON 值的文本。
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); len(m) == 2 {
		s = m[1]
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closing := byte('}')
	if s[start] == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(s, closing)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

func decodeJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), v); err != nil {
		return &FormatError{Raw: raw, Err: err}
	}
	return nil
}

func parseVariations(raw string) ([]Variation, error) {
	var list []Variation
	if err := decodeJSON(raw, &list); err != nil {
		// 部分模型会包一层对象
		var wrapped struct {
			Variations []Variation `json:"variations"`
		}
		if decodeJSON(raw, &wrapped) != nil || len(wrapped.Variations) == 0 {
			return nil, err
		}
		list = wrapped.Variations
	}

	out := make([]Variation, 0, len(list))
	for _, v := range list {
		v.Text = strings.TrimSpace(v.Text)
		if v.Text == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, &FormatError{Raw: raw, Err: fmt.Errorf("结果为空")}
	}
	return out, nil
}

func parseThumbnailPrompt(raw string) (ThumbnailPrompt, error) {
	var p ThumbnailPrompt
	if err := decodeJSON(raw, &p); err != nil {
		return ThumbnailPrompt{}, err
	}
	p.EnglishPrompt = strings.TrimSpace(p.EnglishPrompt)
	p.PortugueseTranslation = strings.TrimSpace(p.PortugueseTranslation)
	if p.EnglishPrompt == "" {
		return ThumbnailPrompt{}, &FormatError{Raw: raw, Err: fmt.Errorf("缺少 englishPrompt")}
	}
	return p, nil
}

// responseParts 汇总候选结果中的文字与第一张图片。thought 部分会被忽略。
func responseParts(resp *genai.GenerateContentResponse) (string, []byte) {
	if resp == nil {
		return "", nil
	}
	var (
		text  strings.Builder
		image []byte
	)
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && image == nil {
				image = part.InlineData.Data
			}
			if part.Text != "" {
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(text.String()), image
}

var variationsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"text":     {Type: genai.TypeString},
			"keywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"text", "keywords"},
	},
}

var thumbnailPromptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"englishPrompt":         {Type: genai.TypeString},
		"portugueseTranslation": {Type: genai.TypeString},
	},
	Required: []string{"englishPrompt", "portugueseTranslation"},
}
