// Package preset 把 .thumb 预设转换为场景中的文字图层。
package preset

import (
	"fmt"
	"os"
	"strings"

	"github.com/ByLCY/thumbsmith/dsl"
)

// Style is a named attribute set; Extends names the parent style.
type Style struct {
	Name    string
	Extends string
	Props   map[string]string
}

// Meta 为预设的描述信息。
type Meta struct {
	Title string
	Tags  []string
	Extra map[string]string
}

// Layer 是一条尚未求值的 text 指令。
type Layer struct {
	Style   string
	Attrs   map[string]string
	Content string
}

// Preset is a parsed and style-resolved .thumb document.
type Preset struct {
	Name    string
	Version string
	Meta    Meta
	Styles  map[string]Style
	Layers  []Layer
}

// LoadFile 读取并解析预设文件。
func LoadFile(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取预设 %s 失败: %w", path, err)
	}
	defer f.Close()
	doc, err := dsl.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("解析预设 %s 失败: %w", path, err)
	}
	return FromDocument(doc)
}

// LoadString parses preset source.
func LoadString(src string) (*Preset, error) {
	doc, err := dsl.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("解析预设失败: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument 收集元信息、样式（含继承）与图层。
func FromDocument(doc *dsl.Document) (*Preset, error) {
	if doc == nil {
		return nil, fmt.Errorf("预设文档为空")
	}
	p := &Preset{
		Name:    doc.Name,
		Version: doc.Version,
		Meta:    collectMeta(doc),
	}

	rawStyles := map[string]Style{}
	for _, section := range doc.Sections {
		switch {
		case section.Styles != nil && section.Styles.Block != nil:
			for _, stmt := range section.Styles.Block.Statements {
				if stmt.Command == nil || stmt.Command.Name != "style" {
					continue
				}
				style := parseStyle(stmt.Command)
				if style.Name == "" {
					return nil, fmt.Errorf("第 %d 行的 style 缺少名称", stmt.Command.Pos.Line)
				}
				rawStyles[style.Name] = style
			}
		case section.Layers != nil && section.Layers.Block != nil:
			for _, stmt := range section.Layers.Block.Statements {
				if stmt.Command == nil {
					continue
				}
				if stmt.Command.Name != "text" {
					return nil, fmt.Errorf("第 %d 行: 不支持的图层类型 %s", stmt.Command.Pos.Line, stmt.Command.Name)
				}
				style, attrs := parseArgs(stmt.Command.Args, true)
				p.Layers = append(p.Layers, Layer{
					Style:   style,
					Attrs:   attrs,
					Content: extractText(stmt.Command.Block),
				})
			}
		}
	}

	styles, err := resolveStyles(rawStyles)
	if err != nil {
		return nil, err
	}
	p.Styles = styles
	for i, l := range p.Layers {
		if l.Style != "" {
			if _, ok := styles[l.Style]; !ok {
				return nil, fmt.Errorf("图层 %d 引用了未定义的 style %s", i, l.Style)
			}
		}
	}
	return p, nil
}

func collectMeta(doc *dsl.Document) Meta {
	meta := Meta{Extra: map[string]string{}}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch key := strings.ToLower(stmt.Assignment.Key); key {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "tags", "keywords":
				meta.Tags = valueToStringSlice(stmt.Assignment.Value)
			default:
				meta.Extra[key] = valueToString(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func parseStyle(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			style.Props[stmt.Assignment.Key] = val
		}
	}
	return style
}

// resolveStyles 展开继承链，子样式覆盖父样式；检测未定义的父样式与循环继承。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// parseArgs 解析 `Style key value key value ...` 形式的参数。
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}
	cursor := 0
	var style string
	// 参数个数为奇数时首个标识符是样式名
	if allowStyle && args[0].Type == "Ident" && len(args)%2 == 1 {
		style = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		return val.Expr.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
