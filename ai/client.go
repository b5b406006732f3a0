// Package ai 基于 Gemini 实现标题改写、提示词生成与图片生成三个协作接口。
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultTextModel   = "gemini-3-flash-preview"
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultAspectRatio = "16:9"

	defaultTemperature = float32(0.8)
	defaultRateBurst   = 2
	variationCount     = 5

	variationsExpiration = 10 * time.Minute
	variationsCleanup    = 20 * time.Minute
)

// ContentGenerator 是 genai.Models 中本包用到的部分，测试时可以替换。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config 显式传入凭据与模型名称。
type Config struct {
	APIKey       string
	TextModel    string
	ImageModel   string
	RateInterval time.Duration
	Temperature  float32
	Logger       *slog.Logger
}

// Image 为随请求一起发送的参考图片。
type Image struct {
	Data     []byte
	MIMEType string
}

// Client implements the three AI collaborator calls on top of Gemini.
type Client struct {
	gen        ContentGenerator
	cfg        Config
	prompts    *promptBuilder
	limiter    *rate.Limiter
	variations *cache.Cache
	logger     *slog.Logger
}

// NewClient 创建 Gemini 客户端。APIKey 为空时返回 *AuthError。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &AuthError{}
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classify("初始化 Gemini 客户端失败", err)
	}
	return NewClientWithGenerator(gc.Models, cfg)
}

// NewClientWithGenerator 使用给定的 ContentGenerator 创建客户端。
func NewClientWithGenerator(gen ContentGenerator, cfg Config) (*Client, error) {
	if gen == nil {
		return nil, fmt.Errorf("ai: ContentGenerator 不能为空")
	}
	prompts, err := newPromptBuilder()
	if err != nil {
		return nil, err
	}
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		gen:        gen,
		cfg:        cfg,
		prompts:    prompts,
		variations: cache.New(variationsExpiration, variationsCleanup),
		logger:     logger,
	}
	if cfg.RateInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), defaultRateBurst)
	}
	return c, nil
}

// GenerateHeadlineVariations 改写标题。结果无法解析时返回 *FormatError，
// 调用方可以用 FallbackVariations(err.Raw) 降级。
func (c *Client) GenerateHeadlineVariations(ctx context.Context, headline string) ([]Variation, error) {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return nil, fmt.Errorf("ai: 标题不能为空")
	}
	if cached, ok := c.variations.Get(headline); ok {
		if list, ok := cached.([]Variation); ok {
			return cloneVariations(list), nil
		}
	}

	prompt, err := c.prompts.build(promptVariations, promptData{Headline: headline, Count: variationCount})
	if err != nil {
		return nil, err
	}
	resp, err := c.generate(ctx, c.cfg.TextModel, []*genai.Part{genai.NewPartFromText(prompt)}, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   variationsSchema,
	})
	if err != nil {
		return nil, err
	}
	text, _ := responseParts(resp)
	list, err := parseVariations(text)
	if err != nil {
		return nil, err
	}
	c.variations.SetDefault(headline, cloneVariations(list))
	c.logger.Info("标题改写完成", "headline", headline, "count", len(list))
	return list, nil
}

// GenerateThumbnailPrompt 根据标题、风格和参考图生成图片提示词。
// 解析失败返回 *FormatError，没有降级方案。
func (c *Client) GenerateThumbnailPrompt(ctx context.Context, headline, style string, images []Image) (ThumbnailPrompt, error) {
	prompt, err := c.prompts.build(promptThumbnail, promptData{
		Headline:   strings.TrimSpace(headline),
		Style:      strings.TrimSpace(style),
		ImageCount: len(images),
	})
	if err != nil {
		return ThumbnailPrompt{}, err
	}
	parts := append(imageParts(images), genai.NewPartFromText(prompt))
	resp, err := c.generate(ctx, c.cfg.TextModel, parts, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   thumbnailPromptSchema,
	})
	if err != nil {
		return ThumbnailPrompt{}, err
	}
	text, _ := responseParts(resp)
	return parseThumbnailPrompt(text)
}

// GenerateFinalImage 生成图片（有参考图时为编辑），返回原始图片字节。
// 只有文字说明时返回 *ModelRefusalError，什么都没有时返回 *NoOutputError。
func (c *Client) GenerateFinalImage(ctx context.Context, prompt string, baseImages []Image, aspectRatio string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("ai: 提示词不能为空")
	}
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	text, err := c.prompts.build(promptFinalImage, promptData{
		Prompt:      strings.TrimSpace(prompt),
		AspectRatio: aspectRatio,
		ImageCount:  len(baseImages),
	})
	if err != nil {
		return nil, err
	}
	parts := append(imageParts(baseImages), genai.NewPartFromText(text))
	resp, err := c.generate(ctx, c.cfg.ImageModel, parts, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
	})
	if err != nil {
		return nil, err
	}
	explanation, img := responseParts(resp)
	switch {
	case img != nil:
		c.logger.Info("图片生成完成", "bytes", len(img), "edited", len(baseImages) > 0)
		return img, nil
	case explanation != "":
		return nil, &ModelRefusalError{Explanation: explanation}
	default:
		return nil, &NoOutputError{}
	}
}

func (c *Client) generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待调用配额失败: %w", err)
		}
	}
	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.gen.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		c.logger.Warn("Gemini 调用失败", "model", model, "error", err)
		return nil, classify("调用 "+model+" 失败", err)
	}
	c.logger.Debug("Gemini 调用完成", "model", model, "elapsed", time.Since(start))
	return resp, nil
}

func imageParts(images []Image) []*genai.Part {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MIMEType
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	return parts
}

func cloneVariations(in []Variation) []Variation {
	out := make([]Variation, len(in))
	for i, v := range in {
		out[i] = Variation{Text: v.Text, Keywords: append([]string(nil), v.Keywords...)}
	}
	return out
}
