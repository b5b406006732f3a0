// Package server 通过 HTTP 暴露一次编辑会话：场景操作、指针事件、AI 生成、预览与下载。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/ByLCY/thumbsmith/ai"
	"github.com/ByLCY/thumbsmith/interaction"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/studio"
)

// Options configures the HTTP server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// BodyLimit 为请求体上限（字节），底图以原始字节上传。
	BodyLimit int
	AccessLog bool
	Logger    *slog.Logger
}

// Server serves a single studio.Session.
type Server struct {
	app     *fiber.App
	session *studio.Session
	logger  *slog.Logger
}

// New 创建服务器并注册全部路由。
func New(session *studio.Session, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cfg := fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		AppName:      "thumbsmith",
	}
	if opts.BodyLimit > 0 {
		cfg.BodyLimit = opts.BodyLimit
	}
	s := &Server{
		app:     fiber.New(cfg),
		session: session,
		logger:  log,
	}

	// ============================================================
	// Global Middleware
	// ============================================================

	s.app.Use(recover.New())
	if opts.AccessLog {
		s.app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	api := s.app.Group("/api")

	// 场景
	api.Get("/scene", s.getScene)
	api.Get("/state", s.getState)
	api.Post("/elements", s.addElement)
	api.Patch("/elements/active", s.updateActive)
	api.Delete("/elements/active", s.removeActive)
	api.Put("/active", s.setActive)
	api.Put("/viewport", s.setViewport)
	api.Post("/base-image", s.setBaseImage)
	api.Post("/preset", s.applyPreset)

	// 指针
	api.Post("/pointer/down", s.pointerDown)
	api.Post("/pointer/move", s.pointerMove)
	api.Post("/pointer/up", s.pointerUp)

	// AI
	api.Post("/variations", s.variations)
	api.Post("/prompt", s.prompt)
	api.Post("/image", s.image)
	api.Post("/restart", s.restart)

	// 输出
	api.Get("/preview.png", s.preview)
	api.Get("/export", s.export)
}

// App exposes the underlying fiber app (used by tests).
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP 服务启动", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown 等待进行中的请求结束后关闭服务。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ============================================================
// Error Mapping
// ============================================================

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func statusOf(err error) int {
	var (
		authErr   *ai.AuthError
		quotaErr  *ai.QuotaError
		formatErr *ai.FormatError
		noOutput  *ai.NoOutputError
		refusal   *ai.ModelRefusalError
		decodeErr *renderer.DecodeError
		invalid   badRequest
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &quotaErr):
		return http.StatusTooManyRequests
	case errors.As(err, &formatErr):
		return http.StatusBadGateway
	case errors.As(err, &noOutput), errors.As(err, &refusal), errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interaction.ErrSessionActive), errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, interaction.ErrUnknownElement):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrNoBaseImage), errors.Is(err, studio.ErrNoGenerator):
		return http.StatusPreconditionFailed
	case errors.Is(err, studio.ErrInvalidHandle), errors.Is(err, studio.ErrNoElement),
		errors.Is(err, renderer.ErrInvalidScale):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusOf(err)
	body := fiber.Map{"error": err.Error()}
	var refusal *ai.ModelRefusalError
	if errors.As(err, &refusal) {
		body["explanation"] = refusal.Explanation
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("请求处理失败", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.logger.Warn("请求被拒绝", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(body)
}
