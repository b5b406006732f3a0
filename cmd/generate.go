package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/thumbsmith/ai"
	"github.com/ByLCY/thumbsmith/preset"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/studio"
)

type generateOptions struct {
	Headline     string
	Style        string
	Images       []string
	AspectRatio  string
	Variation    int
	Preset       string
	DisplayWidth int
	Out          string
	Debug        string
}

var generateOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "改写标题、生成提示词与底图，并按预设导出缩略图",
	Long: `依次调用 AI 完成标题改写、图片提示词生成与图片生成，
然后在生成的底图上按预设排版文字图层并导出 PNG。`,
	RunE: generateCommand,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateOpts.Headline, "headline", "", "视频标题")
	f.StringVar(&generateOpts.Style, "style", "", "画面风格描述")
	f.StringSliceVar(&generateOpts.Images, "image", nil, "参考图片路径，可重复指定")
	f.StringVar(&generateOpts.AspectRatio, "aspect-ratio", ai.DefaultAspectRatio, "图片宽高比")
	f.IntVar(&generateOpts.Variation, "variation", 0, "使用第几条改写结果（从 0 开始）")
	f.StringVar(&generateOpts.Preset, "preset", "", ".thumb 预设文件路径，为空时不添加文字")
	f.IntVar(&generateOpts.DisplayWidth, "display-width", 0, "预设坐标所在的显示宽度，默认读取 DISPLAY_WIDTH")
	f.StringVarP(&generateOpts.Out, "out", "o", renderer.ExportFileName, "PNG 输出路径")
	f.StringVar(&generateOpts.Debug, "debug", "", "场景调试 JSON 输出路径")
	_ = generateCmd.MarkFlagRequired("headline")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := generateOpts

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.DisplayWidth > 0 {
		cfg.DisplayWidth = opts.DisplayWidth
	}

	var p *preset.Preset
	if opts.Preset != "" {
		if p, err = preset.LoadFile(opts.Preset); err != nil {
			return err
		}
	}
	images, err := loadImages(opts.Images)
	if err != nil {
		return err
	}

	session, err := newSession(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer session.Close()

	slog.Info("开始生成缩略图", "headline", opts.Headline, "text_model", cfg.GeminiModel, "image_model", cfg.GeminiImageModel)

	variations, err := session.GenerateVariations(ctx, opts.Headline)
	if err != nil {
		return fmt.Errorf("标题改写失败: %w", err)
	}
	if opts.Variation < 0 || opts.Variation >= len(variations) {
		return fmt.Errorf("--variation %d 超出范围，共 %d 条结果", opts.Variation, len(variations))
	}
	chosen := variations[opts.Variation]
	for i, v := range variations {
		slog.Info("标题候选", "index", i, "text", v.Text, "keywords", strings.Join(v.Keywords, ","))
	}

	prompt, err := session.GeneratePrompt(ctx, chosen.Text, opts.Style, images)
	if err != nil {
		return fmt.Errorf("提示词生成失败: %w", err)
	}
	slog.Info("提示词已生成", "prompt", prompt.EnglishPrompt)

	keywords := make([]any, 0, len(chosen.Keywords))
	for _, k := range chosen.Keywords {
		keywords = append(keywords, k)
	}
	err = session.GenerateImage(ctx, studio.ImageRequest{
		Prompt:      prompt.EnglishPrompt,
		AspectRatio: opts.AspectRatio,
		Images:      images,
		Preset:      p,
		Data: map[string]any{
			"headline": chosen.Text,
			"keywords": keywords,
			"original": opts.Headline,
		},
	})
	if err != nil {
		var refusal *ai.ModelRefusalError
		if errors.As(err, &refusal) {
			return fmt.Errorf("模型拒绝生成图片: %s", refusal.Explanation)
		}
		return fmt.Errorf("图片生成失败: %w", err)
	}

	out, err := session.Export()
	if err != nil {
		return fmt.Errorf("导出失败: %w", err)
	}
	if opts.Debug != "" {
		if err := writeDebug(session.Snapshot(), opts.Debug); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(opts.Out, out); err != nil {
		return err
	}
	slog.Info("已导出缩略图", "path", opts.Out, "bytes", len(out))
	return nil
}

// loadImages 并行读取参考图片，结果保持参数顺序。
func loadImages(paths []string) ([]ai.Image, error) {
	images := make([]ai.Image, len(paths))
	var eg errgroup.Group
	for i, path := range paths {
		eg.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("读取参考图片 %s 失败: %w", path, err)
			}
			if _, _, err := renderer.Decode(data); err != nil {
				return fmt.Errorf("参考图片 %s: %w", path, err)
			}
			images[i] = ai.Image{Data: data}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
