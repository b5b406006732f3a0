// Package config 从环境变量读取运行配置，命令行参数可再覆盖。
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"
)

const (
	DefaultModel        = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultPort         = "8080"
	DefaultReflowDelay  = 50 * time.Millisecond
	DefaultRateInterval = 10 * time.Second
	DefaultDisplayWidth = 960
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 120 * time.Second
	DefaultBodyLimitMB  = 20
)

// Config 汇总所有运行参数。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	Port         string
	FontDir      string
	DisplayWidth int
	BodyLimitMB  int

	ReflowDelay  time.Duration
	RateInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load 读取环境变量；数值或时长格式错误时返回错误而不是静默使用默认值。
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		Port:             envutil.GetEnv("PORT", DefaultPort),
		FontDir:          envutil.GetEnv("FONT_DIR", ""),
	}

	var err error
	if cfg.ReflowDelay, err = durationEnv("REFLOW_DELAY", DefaultReflowDelay); err != nil {
		return nil, err
	}
	if cfg.RateInterval, err = durationEnv("AI_RATE_INTERVAL", DefaultRateInterval); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = durationEnv("READ_TIMEOUT", DefaultReadTimeout); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = durationEnv("WRITE_TIMEOUT", DefaultWriteTimeout); err != nil {
		return nil, err
	}
	if cfg.DisplayWidth, err = intEnv("DISPLAY_WIDTH", DefaultDisplayWidth); err != nil {
		return nil, err
	}
	if cfg.BodyLimitMB, err = intEnv("BODY_LIMIT_MB", DefaultBodyLimitMB); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("环境变量 %s 的时长格式无效: %q", key, raw)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("环境变量 %s 必须是正整数: %q", key, raw)
	}
	return n, nil
}
