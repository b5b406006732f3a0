package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_MODEL", "IMAGE_GEMINI_MODEL", "PORT", "FONT_DIR", "REFLOW_DELAY", "AI_RATE_INTERVAL", "DISPLAY_WIDTH", "READ_TIMEOUT", "WRITE_TIMEOUT", "BODY_LIMIT_MB"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GeminiModel != DefaultModel || cfg.GeminiImageModel != DefaultImageModel {
		t.Fatalf("unexpected models %s %s", cfg.GeminiModel, cfg.GeminiImageModel)
	}
	if cfg.Addr() != ":8080" || cfg.DisplayWidth != DefaultDisplayWidth || cfg.ReflowDelay != DefaultReflowDelay {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("PORT", "9000")
	t.Setenv("REFLOW_DELAY", "80ms")
	t.Setenv("DISPLAY_WIDTH", "640")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GeminiAPIKey != "k" || cfg.Port != "9000" || cfg.ReflowDelay != 80*time.Millisecond || cfg.DisplayWidth != 640 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DISPLAY_WIDTH", "wide")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid DISPLAY_WIDTH")
	}
	t.Setenv("DISPLAY_WIDTH", "")
	t.Setenv("REFLOW_DELAY", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REFLOW_DELAY")
	}
}
