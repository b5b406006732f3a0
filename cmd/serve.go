package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ByLCY/thumbsmith/ai"
	"github.com/ByLCY/thumbsmith/config"
	canvasrenderer "github.com/ByLCY/thumbsmith/renderer/canvas"
	"github.com/ByLCY/thumbsmith/server"
	"github.com/ByLCY/thumbsmith/studio"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动交互式编辑的 HTTP 服务",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "监听端口（默认读取 PORT）")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newSession(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer session.Close()

	srv := server.New(session, server.Options{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		AccessLog:    true,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Addr()) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务异常退出: %w", err)
	case <-ctx.Done():
	}
	slog.Info("收到退出信号，正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSession 组装渲染器、AI 客户端与会话。optionalAI 为 true 时缺少 API key
// 只记录警告，AI 接口会返回 studio.ErrNoGenerator。
func newSession(ctx context.Context, cfg *config.Config, optionalAI bool) (*studio.Session, error) {
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{FontDir: cfg.FontDir})

	opts := studio.Options{
		Compositor:   r,
		DisplayWidth: cfg.DisplayWidth,
		ReflowDelay:  cfg.ReflowDelay,
	}
	client, err := ai.NewClient(ctx, ai.Config{
		APIKey:       cfg.GeminiAPIKey,
		TextModel:    cfg.GeminiModel,
		ImageModel:   cfg.GeminiImageModel,
		RateInterval: cfg.RateInterval,
	})
	var authErr *ai.AuthError
	switch {
	case err == nil:
		opts.Generator = client
	case optionalAI && errors.As(err, &authErr):
		slog.Warn("未设置 GEMINI_API_KEY，AI 相关接口不可用")
	default:
		return nil, fmt.Errorf("初始化 AI 客户端失败: %w", err)
	}
	return studio.New(opts)
}
