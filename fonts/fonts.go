// Package fonts 提供内置字体以及按字族名查找本地字体文件的能力。
// 缩略图常用的展示字体（Anton、Impact、Bebas Neue 等）不随程序分发，
// 缺失时映射到 Go 字体族中字重相近的一款。
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Fallback 为找不到任何匹配字体时使用的字族名。
const Fallback = "Go"

var builtin = map[string][]byte{
	"go":             goregular.TTF,
	"go-bold":        gobold.TTF,
	"go-italic":      goitalic.TTF,
	"go-bold-italic": gobolditalic.TTF,
	"go-medium":      gomedium.TTF,
	"go-mono":        gomono.TTF,
}

// 展示类字体统一落到粗体，正文类字体落到常规体。
var aliases = map[string]string{
	"anton":      "go-bold",
	"impact":     "go-bold",
	"bebas neue": "go-bold",
	"bebas":      "go-bold",
	"oswald":     "go-bold",
	"montserrat": "go-medium",
	"roboto":     "go",
	"inter":      "go",
	"arial":      "go",
	"helvetica":  "go",
	"sans-serif": "go",
	"monospace":  "go-mono",
	"courier":    "go-mono",
}

// Normalize 将字族名转为查找用的键。
func Normalize(family string) string {
	s := strings.ToLower(strings.TrimSpace(family))
	s = strings.Trim(s, `"'`)
	return strings.Join(strings.Fields(s), " ")
}

// Builtin 返回字族对应的内置字体数据；第二个返回值表示是否精确或通过别名命中。
func Builtin(family string) ([]byte, bool) {
	key := Normalize(family)
	if data, ok := builtin[key]; ok {
		return data, true
	}
	if alias, ok := aliases[key]; ok {
		return builtin[alias], true
	}
	return goregular.TTF, false
}

// Find 在 dir 中查找与字族名匹配的 .ttf/.otf 文件，匹配时忽略大小写、空格与连字符。
func Find(dir, family string) (string, bool) {
	if dir == "" || family == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	want := compact(family)
	var prefixMatch string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		base := compact(strings.TrimSuffix(name, filepath.Ext(name)))
		if base == want || base == want+"regular" {
			return filepath.Join(dir, name), true
		}
		if prefixMatch == "" && strings.HasPrefix(base, want) {
			prefixMatch = filepath.Join(dir, name)
		}
	}
	return prefixMatch, prefixMatch != ""
}

// Load 按顺序尝试：字体目录、内置字体（含别名）。找不到时返回回退字体数据，
// 并通过 resolved 告知实际使用的来源。
func Load(dir, family string) (data []byte, resolved string, err error) {
	if path, ok := Find(dir, family); ok {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
		}
		return data, path, nil
	}
	data, ok := Builtin(family)
	if ok {
		return data, "builtin:" + Normalize(family), nil
	}
	return data, "builtin:" + Normalize(Fallback), nil
}

func compact(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
