package ai

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

const (
	promptVariations = "variations"
	promptThumbnail  = "thumbnail_prompt"
	promptFinalImage = "final_image"
)

// promptData 为所有模板共用的数据。
type promptData struct {
	Headline    string
	Style       string
	Prompt      string
	AspectRatio string
	Count       int
	ImageCount  int
}

type promptBuilder struct {
	templates map[string]*template.Template
}

func newPromptBuilder() (*promptBuilder, error) {
	parsed := map[string]*template.Template{}
	for _, name := range []string{promptVariations, promptThumbnail, promptFinalImage} {
		content, err := promptFiles.ReadFile("prompts/" + name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("读取提示词模板 %s 失败: %w", name, err)
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("提示词模板 %s 内容为空", name)
		}
		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("解析提示词模板 %s 失败: %w", name, err)
		}
		parsed[name] = tmpl
	}
	return &promptBuilder{templates: parsed}, nil
}

func (b *promptBuilder) build(name string, data promptData) (string, error) {
	tmpl, ok := b.templates[name]
	if !ok {
		return "", fmt.Errorf("未知的提示词模板 %s", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("渲染提示词模板 %s 失败: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
