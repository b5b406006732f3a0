package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/thumbsmith/preset"
	"github.com/ByLCY/thumbsmith/renderer"
	canvasrenderer "github.com/ByLCY/thumbsmith/renderer/canvas"
	"github.com/ByLCY/thumbsmith/scene"
	"github.com/ByLCY/thumbsmith/studio"
)

type exportOptions struct {
	Preset       string
	Image        string
	Data         string
	DisplayWidth int
	Out          string
	Debug        string
}

var exportOpts exportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "按预设在底图上排版文字并导出 PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(exportOpts)
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.Preset, "preset", "", ".thumb 预设文件路径")
	f.StringVar(&exportOpts.Image, "image", "", "底图路径（png/jpeg/gif/webp）")
	f.StringVar(&exportOpts.Data, "data", "", "绑定到预设的 JSON 数据")
	f.IntVar(&exportOpts.DisplayWidth, "display-width", 0, "预设坐标所在的显示宽度，默认读取 DISPLAY_WIDTH")
	f.StringVarP(&exportOpts.Out, "out", "o", renderer.ExportFileName, "PNG 输出路径")
	f.StringVar(&exportOpts.Debug, "debug", "", "场景调试 JSON 输出路径")
	_ = exportCmd.MarkFlagRequired("preset")
	_ = exportCmd.MarkFlagRequired("image")
}

// runExport 串联预设解析、场景构建与合成；任何一步失败都不会写出文件。
func runExport(opts exportOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.DisplayWidth > 0 {
		cfg.DisplayWidth = opts.DisplayWidth
	}

	var data any
	if opts.Data != "" {
		if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
			return fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	p, err := preset.LoadFile(opts.Preset)
	if err != nil {
		return err
	}
	base, err := os.ReadFile(opts.Image)
	if err != nil {
		return fmt.Errorf("读取底图失败: %w", err)
	}

	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{FontDir: cfg.FontDir})
	session, err := studio.New(studio.Options{
		Compositor:   r,
		DisplayWidth: cfg.DisplayWidth,
		ReflowDelay:  cfg.ReflowDelay,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.SetBaseImage(base); err != nil {
		return err
	}
	if err := session.ApplyPreset(p, data); err != nil {
		return err
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

func writeDebug(snap scene.Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := scene.WriteDebugJSON(snap, path); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

// writeFileAtomic 先写临时文件再改名，避免留下不完整的输出。
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".thumbsmith-*.png")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("设置输出文件权限失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("保存输出文件失败: %w", err)
	}
	return nil
}
