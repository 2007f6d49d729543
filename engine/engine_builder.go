package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/renderer"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/scene"
	"github.com/Carmen-Shannon/umbra/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig replaces the default configuration.
//
// Parameters:
//   - cfg: the configuration, usually from config.Load
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithScene sets the scene to render, as produced by scene.Builder.Build.
//
// Parameters:
//   - res: the built scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(res *scene.Result) EngineBuilderOption {
	return func(e *engine) {
		e.result = res
	}
}

// WithUpdater sets the function called with every window event and once per frame.
//
// Parameters:
//   - fn: the updater
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithUpdater(fn renderer.Updater) EngineBuilderOption {
	return func(e *engine) {
		e.updater = fn
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The engine closes it when Run returns.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice supplies the GPU backend instead of creating a WGPUDevice from the window.
// The caller keeps ownership and releases it.
//
// Parameters:
//   - dev: the backend
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(dev device.Device) EngineBuilderOption {
	return func(e *engine) {
		e.dev = dev
		e.ownsDevice = false
	}
}

// WithRendererOptions passes options through to renderer.New.
func WithRendererOptions(opts ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOpts = append(e.rendererOpts, opts...)
	}
}

// WithLogger sets the engine logger instead of a text handler on stderr at the configured level.
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
