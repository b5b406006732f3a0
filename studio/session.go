// Package studio 把场景、交互引擎、高度重算、渲染器与 AI 协作方组合成一次编辑会话。
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ByLCY/thumbsmith/ai"
	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/interaction"
	"github.com/ByLCY/thumbsmith/layout"
	"github.com/ByLCY/thumbsmith/preset"
	"github.com/ByLCY/thumbsmith/reflow"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/scene"
)

var (
	ErrNoBaseImage   = errors.New("studio: 还没有底图")
	ErrNoGenerator   = errors.New("studio: 未配置 AI 生成器")
	ErrBusy          = errors.New("studio: 上一次生成尚未结束")
	ErrInvalidHandle = errors.New("studio: 不支持的缩放手柄")
	ErrNoElement     = errors.New("studio: 缩放需要指定元素")
	ErrNoVariations  = errors.New("studio: 没有得到任何标题")
)

// Generator 为三个 AI 协作接口，由 ai.Client 实现。
type Generator interface {
	GenerateHeadlineVariations(ctx context.Context, headline string) ([]ai.Variation, error)
	GenerateThumbnailPrompt(ctx context.Context, headline, style string, images []ai.Image) (ai.ThumbnailPrompt, error)
	GenerateFinalImage(ctx context.Context, prompt string, baseImages []ai.Image, aspectRatio string) ([]byte, error)
}

// Compositor 必须同时负责测量、预览与导出，保证三者折行一致。
type Compositor interface {
	layout.Measurer
	renderer.Renderer
	renderer.Previewer
}

// Options configures a Session.
type Options struct {
	Compositor   Compositor
	Generator    Generator
	DisplayWidth int
	ReflowDelay  time.Duration
	Logger       *slog.Logger
}

// ImageRequest describes one image generation step.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Images      []ai.Image
	// Preset 非空时，新底图上的图层由预设生成；否则场景为空。
	Preset *preset.Preset
	Data   any
}

// Session is one editing session: at most one base image and one scene.
type Session struct {
	store    *scene.Store
	engine   *interaction.Engine
	reflower *reflow.Reflower
	comp     Compositor
	gen      Generator
	logger   *slog.Logger

	mu           sync.Mutex
	stage        Stage
	busy         bool
	displayWidth int
	base         []byte
	baseSize     [2]int
	headline     string
	variations   []ai.Variation
	prompt       ai.ThumbnailPrompt
}

// New 创建会话并开始监听场景变化。
func New(opts Options) (*Session, error) {
	if opts.Compositor == nil {
		return nil, fmt.Errorf("studio: Compositor 不能为空")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.ReflowDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	store := scene.NewStore()
	s := &Session{
		store:        store,
		engine:       interaction.NewEngine(store),
		reflower:     reflow.New(store, opts.Compositor, reflow.NewScheduler(delay), logger),
		comp:         opts.Compositor,
		gen:          opts.Generator,
		logger:       logger,
		displayWidth: opts.DisplayWidth,
	}
	s.reflower.Start()
	return s, nil
}

// Close 结束交互会话并停止高度重算。
func (s *Session) Close() {
	s.engine.End()
	s.reflower.Close()
}

// Store exposes the scene for observers.
func (s *Session) Store() *scene.Store { return s.store }

// Snapshot returns the current scene.
func (s *Session) Snapshot() scene.Snapshot { return s.store.Snapshot() }

// State 返回会话状态的只读副本。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Stage:        s.stage,
		Headline:     s.headline,
		Variations:   append([]ai.Variation(nil), s.variations...),
		Prompt:       s.prompt,
		HasBase:      s.base != nil,
		BaseWidth:    s.baseSize[0],
		BaseHeight:   s.baseSize[1],
		DisplayWidth: s.effectiveDisplayWidth(),
		Interaction:  s.engine.State().String(),
	}
	if st.HasBase {
		st.DisplayScale, _ = renderer.DisplayScale(st.BaseWidth, st.DisplayWidth)
	}
	return st
}

// SetDisplayWidth 设置预览的显示宽度。
func (s *Session) SetDisplayWidth(w int) error {
	if w <= 0 {
		return fmt.Errorf("studio: 显示宽度必须为正数: %d", w)
	}
	s.mu.Lock()
	s.displayWidth = w
	s.mu.Unlock()
	return nil
}

// SetBaseImage 设置新的底图并清空场景。解码失败时返回 *renderer.DecodeError，
// 底图与场景保持不变。
func (s *Session) SetBaseImage(data []byte) error {
	return s.installBase(data, nil)
}

func (s *Session) installBase(data []byte, elements []scene.TextElement) error {
	img, format, err := renderer.Decode(data)
	if err != nil {
		return err
	}
	b := img.Bounds()

	s.engine.End()
	s.mu.Lock()
	s.base = append([]byte(nil), data...)
	s.baseSize = [2]int{b.Dx(), b.Dy()}
	s.stage = StageEditor
	s.mu.Unlock()

	s.store.ReplaceAll(elements)
	s.logger.Info("底图已更新", "format", format, "width", b.Dx(), "height", b.Dy(), "elements", len(elements))
	return nil
}

// AddElement 以默认属性加上 patch 新建图层，并选中它。
func (s *Session) AddElement(p scene.Patch) string {
	return s.store.AddElement(p.Apply(scene.DefaultElement()))
}

// UpdateActive merges p into the selected element.
func (s *Session) UpdateActive(p scene.Patch) bool { return s.store.UpdateActive(p) }

// RemoveActive deletes the selected element.
func (s *Session) RemoveActive() bool { return s.store.RemoveActive() }

// SetActive selects id; an empty id clears the selection.
func (s *Session) SetActive(id string) bool { return s.store.SetActive(id) }

// PointerDown 开始一次交互。handle 非空时为缩放（元素缺省为当前选中元素）；
// 否则按 elementID 或命中测试开始拖拽，点在空白处则取消选中。
// 返回会话作用的元素 id，没有开始会话时为空。
func (s *Session) PointerDown(p geometry.Point, elementID, handle string) (string, error) {
	// 会话进行中不允许改动选中状态
	if s.engine.State() != interaction.Idle {
		return "", interaction.ErrSessionActive
	}
	if handle != "" {
		h, ok := geometry.ParseHandle(handle)
		if !ok || !isActiveHandle(h) {
			return "", ErrInvalidHandle
		}
		if elementID == "" {
			elementID = s.store.Snapshot().ActiveID
		}
		if elementID == "" {
			return "", ErrNoElement
		}
		if err := s.engine.BeginResize(elementID, h, p); err != nil {
			return "", err
		}
		return elementID, nil
	}

	if elementID == "" {
		snap := s.store.Snapshot()
		if active, ok := snap.Active(); ok {
			if h, ok := geometry.HandleAt(active.Position, active.Width, active.Height, active.Rotation, p, handleRadius); ok {
				return s.PointerDown(p, active.ID, string(h))
			}
		}
		id, ok := snap.HitTest(p)
		if !ok {
			s.store.SetActive("")
			return "", nil
		}
		elementID = id
	}
	if !s.store.SetActive(elementID) {
		return "", interaction.ErrUnknownElement
	}
	if err := s.engine.BeginDrag(elementID, p); err != nil {
		return "", err
	}
	return elementID, nil
}

// PointerMove advances the running interaction.
func (s *Session) PointerMove(p geometry.Point) bool { return s.engine.Move(p) }

// PointerUp ends the running interaction.
func (s *Session) PointerUp() { s.engine.End() }

// GenerateVariations 改写标题。结果格式错误时降级为逐行文本。
func (s *Session) GenerateVariations(ctx context.Context, headline string) ([]ai.Variation, error) {
	if s.gen == nil {
		return nil, ErrNoGenerator
	}
	list, err := s.gen.GenerateHeadlineVariations(ctx, headline)
	if err != nil {
		var fe *ai.FormatError
		if !errors.As(err, &fe) {
			return nil, err
		}
		s.logger.Warn("标题改写结果无法解析，改用逐行文本", "error", err)
		list = ai.FallbackVariations(fe.Raw)
		if len(list) == 0 {
			return nil, err
		}
	}
	if len(list) == 0 {
		return nil, ErrNoVariations
	}

	s.mu.Lock()
	s.headline = headline
	s.variations = append([]ai.Variation(nil), list...)
	if s.stage < StageVariations {
		s.stage = StageVariations
	}
	s.mu.Unlock()
	return list, nil
}

// GeneratePrompt 生成图片提示词。任何错误都中止本次尝试，场景不受影响。
func (s *Session) GeneratePrompt(ctx context.Context, headline, style string, images []ai.Image) (ai.ThumbnailPrompt, error) {
	if s.gen == nil {
		return ai.ThumbnailPrompt{}, ErrNoGenerator
	}
	p, err := s.gen.GenerateThumbnailPrompt(ctx, headline, style, images)
	if err != nil {
		return ai.ThumbnailPrompt{}, err
	}
	s.mu.Lock()
	s.headline = headline
	s.prompt = p
	if s.stage < StagePrompt {
		s.stage = StagePrompt
	}
	s.mu.Unlock()
	return p, nil
}

// GenerateImage 生成底图并替换场景。失败时阶段回到调用前的状态，底图和场景不变。
func (s *Session) GenerateImage(ctx context.Context, req ImageRequest) error {
	if s.gen == nil {
		return ErrNoGenerator
	}
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	prior := s.stage
	s.stage = StageGenerating
	s.mu.Unlock()

	err := s.generateImage(ctx, req)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.stage = prior
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("图片生成失败，已回到上一阶段", "stage", prior.String(), "error", err)
	}
	return err
}

func (s *Session) generateImage(ctx context.Context, req ImageRequest) error {
	data, err := s.gen.GenerateFinalImage(ctx, req.Prompt, req.Images, req.AspectRatio)
	if err != nil {
		return err
	}
	img, _, err := renderer.Decode(data)
	if err != nil {
		return err
	}

	var elements []scene.TextElement
	if req.Preset != nil {
		b := img.Bounds()
		dw := s.displayWidthFor(b.Dx())
		elements, err = req.Preset.Build(preset.BuildOptions{
			Measurer:      s.comp,
			DisplayWidth:  float64(dw),
			DisplayHeight: math.Round(float64(b.Dy()) * float64(dw) / float64(b.Dx())),
			Data:          s.bindingData(req.Data),
		})
		if err != nil {
			return fmt.Errorf("应用预设失败: %w", err)
		}
	}
	return s.installBase(data, elements)
}

// ApplyPreset 用预设重新生成当前底图上的图层。
func (s *Session) ApplyPreset(p *preset.Preset, data any) error {
	s.mu.Lock()
	hasBase := s.base != nil
	w, h := s.baseSize[0], s.baseSize[1]
	s.mu.Unlock()
	if !hasBase {
		return ErrNoBaseImage
	}
	dw := s.displayWidthFor(w)
	elements, err := p.Build(preset.BuildOptions{
		Measurer:      s.comp,
		DisplayWidth:  float64(dw),
		DisplayHeight: math.Round(float64(h) * float64(dw) / float64(w)),
		Data:          s.bindingData(data),
	})
	if err != nil {
		return fmt.Errorf("应用预设失败: %w", err)
	}
	s.engine.End()
	s.store.ReplaceAll(elements)
	return nil
}

// Export 先完成所有待重算的高度，再按原图分辨率合成 PNG。
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	base := s.base
	nativeW := s.baseSize[0]
	displayW := s.effectiveDisplayWidth()
	s.mu.Unlock()
	if base == nil {
		return nil, ErrNoBaseImage
	}

	s.reflower.Flush()
	snap := s.store.Snapshot()
	scale, err := renderer.DisplayScale(nativeW, displayW)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.comp.Export(base, snap.Elements, scale)
	if err != nil {
		return nil, err
	}
	s.logger.Info("导出完成", "elements", len(snap.Elements), "scale", scale, "bytes", len(out), "elapsed", time.Since(start))
	return out, nil
}

// Preview renders the display-size preview with the selection overlay.
func (s *Session) Preview() ([]byte, error) {
	s.mu.Lock()
	base := s.base
	displayW := s.effectiveDisplayWidth()
	s.mu.Unlock()
	if base == nil {
		return nil, ErrNoBaseImage
	}
	snap := s.store.Snapshot()
	return s.comp.Preview(base, snap.Elements, displayW, snap.ActiveID)
}

// Restart 丢弃底图、场景与生成结果，回到输入标题阶段。
func (s *Session) Restart() {
	s.engine.End()
	s.mu.Lock()
	s.stage = StageHeadline
	s.base = nil
	s.baseSize = [2]int{}
	s.headline = ""
	s.variations = nil
	s.prompt = ai.ThumbnailPrompt{}
	s.mu.Unlock()
	s.store.Reset()
}

// effectiveDisplayWidth 未设置显示宽度时使用原图宽度；调用方需持有 s.mu。
func (s *Session) effectiveDisplayWidth() int {
	if s.displayWidth > 0 {
		return s.displayWidth
	}
	return s.baseSize[0]
}

func (s *Session) displayWidthFor(nativeW int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.displayWidth > 0 {
		return s.displayWidth
	}
	return nativeW
}

// bindingData 在调用方没有提供数据时，用当前标题与首个改写结果的关键词作为绑定数据。
func (s *Session) bindingData(data any) any {
	if data != nil {
		return data
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{"headline": s.headline}
	var keywords []any
	if len(s.variations) > 0 {
		for _, k := range s.variations[0].Keywords {
			keywords = append(keywords, k)
		}
	}
	out["keywords"] = keywords
	return out
}

func isActiveHandle(h geometry.Handle) bool {
	for _, a := range geometry.ActiveHandles {
		if a == h {
			return true
		}
	}
	return false
}
