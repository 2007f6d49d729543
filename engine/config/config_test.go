package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.MaxLights != 4 || cfg.ShadowMapSize != 2048 || !cfg.ValidateShaders {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umbra.yaml")
	data := []byte("max_lights: 8\nlog_level: debug\npresent_mode: uncapped\ndepth_bias:\n  constant: 4\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxLights != 8 {
		t.Errorf("expected max_lights 8, got %d", cfg.MaxLights)
	}
	if cfg.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel.Level())
	}
	if cfg.PresentMode != PresentUncapped {
		t.Errorf("expected uncapped, got %q", cfg.PresentMode)
	}
	if cfg.ShadowMapSize != 2048 || cfg.TextureSize != 512 {
		t.Errorf("expected untouched defaults, got %d and %d", cfg.ShadowMapSize, cfg.TextureSize)
	}
	if cfg.DepthBias.Constant != 4 {
		t.Errorf("expected depth bias 4, got %d", cfg.DepthBias.Constant)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero lights", "max_lights: 0"},
		{"odd shadow size", "shadow_map_size: 1000"},
		{"msaa", "msaa: 2"},
		{"present mode", "present_mode: mailbox"},
		{"workers", "light_workers: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseBadLogLevel(t *testing.T) {
	if _, err := Parse([]byte("log_level: loud")); err == nil {
		t.Errorf("expected an error for an unknown log level")
	}
}

func TestCheckLights(t *testing.T) {
	cfg := Default()
	if err := cfg.CheckLights(4); err != nil {
		t.Errorf("expected 4 lights to fit, got %v", err)
	}
	if err := cfg.CheckLights(5); !errors.Is(err, ErrTooManyLights) {
		t.Errorf("expected ErrTooManyLights, got %v", err)
	}
}
