package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrTooManyLights is returned when a scene holds more lights than the renderer was sized for.
	ErrTooManyLights = errors.New("config: too many lights")

	// ErrInvalid is returned by Validate for out-of-range settings.
	ErrInvalid = errors.New("config: invalid setting")
)

// PresentMode selects how frames are handed to the surface.
type PresentMode string

const (
	PresentVsync    PresentMode = "vsync"
	PresentUncapped PresentMode = "uncapped"
)

// LogLevel is a slog.Level that decodes from names such as "debug" or "warn".
type LogLevel slog.Level

// UnmarshalYAML implements yaml.Unmarshaler for LogLevel.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s, err)
	}
	*l = LogLevel(lvl)
	return nil
}

// Level returns the slog.Level value.
func (l LogLevel) Level() slog.Level {
	return slog.Level(l)
}

// DepthBias is the rasterizer bias applied by the shadow pipelines against acne.
type DepthBias struct {
	Constant int32   `yaml:"constant"`
	Slope    float32 `yaml:"slope"`
}

// Config holds every renderer and engine setting that can be set from YAML.
type Config struct {
	MaxLights            int         `yaml:"max_lights"`             // capacity of the light array (default 4)
	ShadowMapSize        uint32      `yaml:"shadow_map_size"`        // side of each shadow-map layer (default 2048)
	TextureSize          uint32      `yaml:"texture_size"`           // side every texture layer is rescaled to (default 512)
	MSAA                 uint32      `yaml:"msaa"`                   // color sample count, 1 or 4 (default 4)
	PresentMode          PresentMode `yaml:"present_mode"`           // vsync or uncapped
	ForceFallbackAdapter bool        `yaml:"force_fallback_adapter"` // request a software adapter
	ValidateShaders      bool        `yaml:"validate_shaders"`       // run naga over expanded WGSL (default true)
	ShaderDir            string      `yaml:"shader_dir"`             // override the embedded templates
	LightWorkers         int         `yaml:"light_workers"`          // >1 packs lights on a worker pool
	LogLevel             LogLevel    `yaml:"log_level"`
	DepthBias            DepthBias   `yaml:"depth_bias"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxLights:       4,
		ShadowMapSize:   2048,
		TextureSize:     512,
		MSAA:            4,
		PresentMode:     PresentVsync,
		ValidateShaders: true,
		LogLevel:        LogLevel(slog.LevelInfo),
		DepthBias:       DepthBias{Constant: 2, Slope: 1.5},
	}
}

// Load reads the YAML file at path over Default and validates the result.
//
// Parameters:
//   - path: the YAML file to read
//
// Returns:
//   - *Config: the merged configuration
//   - error: a read, parse or validation error
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting is usable.
func (c *Config) Validate() error {
	switch {
	case c.MaxLights < 1:
		return fmt.Errorf("%w: max_lights must be positive, got %d", ErrInvalid, c.MaxLights)
	case c.ShadowMapSize == 0 || c.ShadowMapSize&(c.ShadowMapSize-1) != 0:
		return fmt.Errorf("%w: shadow_map_size must be a power of two, got %d", ErrInvalid, c.ShadowMapSize)
	case c.TextureSize == 0:
		return fmt.Errorf("%w: texture_size must be positive", ErrInvalid)
	case c.MSAA != 1 && c.MSAA != 4:
		return fmt.Errorf("%w: msaa must be 1 or 4, got %d", ErrInvalid, c.MSAA)
	case c.PresentMode != PresentVsync && c.PresentMode != PresentUncapped:
		return fmt.Errorf("%w: unknown present_mode %q", ErrInvalid, c.PresentMode)
	case c.LightWorkers < 0:
		return fmt.Errorf("%w: light_workers must not be negative", ErrInvalid)
	}
	return nil
}

// CheckLights returns ErrTooManyLights when n exceeds MaxLights.
func (c *Config) CheckLights(n int) error {
	if n > c.MaxLights {
		return fmt.Errorf("%w: %d lights, capacity %d", ErrTooManyLights, n, c.MaxLights)
	}
	return nil
}
