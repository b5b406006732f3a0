package canvasrenderer

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/thumbsmith/fonts"
	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/renderer"
)

// Renderer measures and draws text overlays via github.com/tdewolff/canvas.
// The same instance serves preview sizing and export so that both wrap text
// identically.
type Renderer struct {
	fontDir string
	logger  *slog.Logger

	// injected resources
	fontBlobs map[string][]byte // by normalized family name

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily

	// 字体面的测宽与取轮廓不保证并发安全
	shapeMu  sync.Mutex
	measured *cache.Cache

	parallelism int
}

var (
	_ renderer.Renderer  = (*Renderer)(nil)
	_ renderer.Previewer = (*Renderer)(nil)
	_ layout.Measurer    = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	FontDir     string              // 按字族名查找 .ttf/.otf 的目录
	Fonts       map[string]Resource // 额外注入的字体，键为字族名
	Parallelism int                 // 并行栅格化的图层数上限，默认 CPU 数
	Logger      *slog.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that only uses builtin fonts.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected fonts and an optional font directory.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		fontDir:      opts.FontDir,
		logger:       opts.Logger,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
		measured:     cache.New(10*time.Minute, 20*time.Minute),
		parallelism:  opts.Parallelism,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.parallelism <= 0 {
		r.parallelism = runtime.NumCPU()
	}
	for name, res := range opts.Fonts {
		key := fonts.Normalize(name)
		if key == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[key] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				// 使用时会回退到内置字体
				r.logger.Warn("读取注入字体失败", "family", name, "path", res.Path, "error", err)
				continue
			}
			r.fontBlobs[key] = data
		}
	}
	return r
}

// MeasureLines 实现 layout.Measurer：按字体与字距测宽后贪心折行。
// 字号与宽度均为 px；渲染器内部以 1mm = 1px 的比例与 canvas 交互。
func (r *Renderer) MeasureLines(text string, font layout.Font, maxWidth float64) ([]layout.Line, error) {
	if font.Size <= 0 {
		return nil, fmt.Errorf("字号必须为正数: %g", font.Size)
	}
	key := measureKey(text, font, maxWidth)
	if v, ok := r.measured.Get(key); ok {
		return cloneLines(v.([]layout.Line)), nil
	}

	face, err := r.fontFace(font.Family, font.Size)
	if err != nil {
		return nil, err
	}
	r.shapeMu.Lock()
	lines := layout.Wrap(text, maxWidth, widthFunc(face, font.LetterSpacing))
	r.shapeMu.Unlock()

	r.measured.SetDefault(key, cloneLines(lines))
	return lines, nil
}

// widthFunc 在字距为 0 时整体测宽（保留字偶距），否则逐字符累加字宽与字距。
func widthFunc(face *canvas.FontFace, spacing float64) layout.WidthFunc {
	return func(s string) float64 {
		if spacing == 0 {
			return face.TextWidth(s)
		}
		w := 0.0
		for _, r := range s {
			w += face.TextWidth(string(r)) + spacing
		}
		return w
	}
}

func measureKey(text string, font layout.Font, maxWidth float64) string {
	return fmt.Sprintf("%s|%g|%g|%g|%s", fonts.Normalize(font.Family), font.Size, font.LetterSpacing, maxWidth, text)
}

func cloneLines(lines []layout.Line) []layout.Line {
	out := make([]layout.Line, len(lines))
	copy(out, lines)
	return out
}

// fontFace 以 px 字号创建字体面（px 视作 mm，再换算为 canvas 所需的 pt）。
func (r *Renderer) fontFace(family string, sizePx float64) (*canvas.FontFace, error) {
	fam, err := r.ensureFontFamily(family)
	if err != nil {
		return nil, err
	}
	return fam.Face(toPt(sizePx), canvas.Black, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, error) {
	key := fonts.Normalize(name)
	if key == "" {
		key = fonts.Normalize(fonts.Fallback)
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	family := canvas.NewFontFamily(key)
	source, err := r.loadFontIntoFamily(family, key)
	if err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
		}
		r.logger.Warn("字体加载失败，改用回退字体", "family", name, "error", err)
		r.fontFamilies[key] = fallback
		return fallback, nil
	}
	r.logger.Debug("字体已加载", "family", name, "source", source)
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, key string) (string, error) {
	if blob, ok := r.fontBlobs[key]; ok {
		return "injected:" + key, family.LoadFont(blob, 0, canvas.FontRegular)
	}
	data, source, err := fonts.Load(r.fontDir, key)
	if err != nil {
		return "", err
	}
	return source, family.LoadFont(data, 0, canvas.FontRegular)
}

// fallback 必须在持有 fontMu 时调用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, _ := fonts.Builtin(fonts.Fallback)
	family := canvas.NewFontFamily("thumbsmith-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
