package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/profiler"
	"github.com/Carmen-Shannon/umbra/engine/renderer"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/scene"
	"github.com/Carmen-Shannon/umbra/engine/window"
)

var ErrNoScene = errors.New("engine: no scene")

// engine implements the Engine interface.
// Drives window polling, scene updates and rendering on a single thread.
type engine struct {
	cfg    *config.Config
	logger *slog.Logger

	window     window.Window
	dev        device.Device
	ownsDevice bool

	result       *scene.Result
	updater      renderer.Updater
	rendererOpts []renderer.RendererBuilderOption
	renderer     *renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration
	stopped          atomic.Bool
	frame            uint64
}

// Engine is the main entry point for the engine.
// It owns the window, the GPU device and the renderer, and runs the frame loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driving the scene.
	//
	// Returns:
	//   - *renderer.Renderer: the renderer
	Renderer() *renderer.Renderer

	// Config returns the effective configuration.
	Config() *config.Config

	// EnableProfiler enables per-second frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// Run runs the frame loop until the window closes or Stop is called, then releases the
	// renderer, the device if the engine created it, and the window.
	//
	// Each frame it polls window events and passes each one to the updater, resizing the
	// renderer first on a window.ResizeEvent, then passes a window.FrameEvent, then renders.
	// A lost surface reconfigures the surface at the current framebuffer size and the loop
	// continues; any other error stops the loop and is returned.
	//
	// Returns:
	//   - error: the error that stopped the loop, or nil
	Run() error

	// Stop makes Run return after the current frame. Safe to call from the updater and
	// from other goroutines, and more than once.
	Stop()
}

// NewEngine creates the window (unless one is supplied), installs the logger, creates the GPU
// device (unless one is supplied) and builds the renderer for the scene.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: ErrNoScene, config.ErrInvalid, a device error or a renderer construction error
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		cfg:      config.Default(),
		profiler: profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: e.cfg.LogLevel.Level()}))
	}
	common.SetLogger(e.logger)

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.result == nil || e.result.Scene == nil {
		return nil, ErrNoScene
	}
	if e.window == nil {
		e.window = window.NewWindow(window.WithTitle("umbra"))
	}

	width, height := e.window.FramebufferSize()
	e.result.Scene.SetViewport(width, height)

	if e.dev == nil {
		dev, err := renderer.NewWGPUDevice(e.window.SurfaceDescriptor(), width, height, renderer.DeviceOptions(e.cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create device: %w", err)
		}
		e.dev = dev
		e.ownsDevice = true
	}

	r, err := renderer.New(e.dev, e.result.Scene, e.result.Entities, e.result.Arena, e.result.Images, e.cfg, e.rendererOpts...)
	if err != nil {
		e.releaseDevice()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	e.renderer = r
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *engine) Config() *config.Config {
	return e.cfg
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Stop() {
	e.stopped.Store(true)
}

func (e *engine) Run() error {
	defer e.shutdown()

	lastFrame := time.Now()
	for !e.stopped.Load() && e.window.IsRunning() {
		frameStart := time.Now()
		if err := e.tick(frameStart.Sub(lastFrame)); err != nil {
			common.Logger().Error("frame loop stopped", "frame", e.frame, "err", err)
			return err
		}
		lastFrame = frameStart

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// tick runs one frame: events, updates, render.
func (e *engine) tick(dt time.Duration) error {
	for _, ev := range e.window.PollEvents() {
		if rs, ok := ev.(window.ResizeEvent); ok {
			if err := e.renderer.Resize(rs.Width, rs.Height); err != nil {
				return err
			}
		}
		if err := e.renderer.Update(e.updater, ev); err != nil {
			return err
		}
	}

	e.frame++
	if err := e.renderer.Update(e.updater, window.FrameEvent{Delta: dt.Seconds(), Frame: e.frame}); err != nil {
		return err
	}

	stats, err := e.renderer.Render()
	if errors.Is(err, device.ErrSurfaceLost) {
		width, height := e.window.FramebufferSize()
		return e.renderer.Resize(width, height)
	}
	if err != nil {
		return err
	}

	if e.profilingEnabled {
		e.profiler.Tick(stats)
	}
	return nil
}

func (e *engine) shutdown() {
	if e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
	e.releaseDevice()
	if err := e.window.Close(); err != nil {
		common.Logger().Debug("close window", "err", err)
	}
}

func (e *engine) releaseDevice() {
	if e.ownsDevice && e.dev != nil {
		e.dev.Release()
		e.dev = nil
	}
}
