// Package cmd 提供 thumbsmith 的命令行入口。
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ByLCY/thumbsmith/config"
)

var (
	verbose bool
	fontDir string
)

var rootCmd = &cobra.Command{
	Use:           "thumbsmith",
	Short:         "给 AI 生成的缩略图叠加可编辑的文字图层并导出 PNG",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	rootCmd.PersistentFlags().StringVar(&fontDir, "font-dir", "", "按字族名查找 .ttf/.otf 的目录（默认读取 FONT_DIR）")
	rootCmd.AddCommand(serveCmd, exportCmd, generateCmd)
}

// Execute 解析命令行并执行子命令，失败时以非零状态退出。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// loadConfig 读取环境配置，并用命令行参数覆盖。
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if fontDir != "" {
		cfg.FontDir = fontDir
	}
	return cfg, nil
}
