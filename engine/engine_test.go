package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/light"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/umbra/engine/scene"
	"github.com/Carmen-Shannon/umbra/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeWindow replays one batch of events per frame and stops running after the last batch.
type fakeWindow struct {
	frames        [][]window.Event
	polled        int
	width, height uint32
	closed        bool
}

func (w *fakeWindow) PollEvents() []window.Event {
	if w.polled >= len(w.frames) {
		return nil
	}
	evs := w.frames[w.polled]
	w.polled++
	return evs
}

func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool                            { return !w.closed && w.polled < len(w.frames) }
func (w *fakeWindow) FramebufferSize() (uint32, uint32)          { return w.width, w.height }

func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ValidateShaders = false
	cfg.TextureSize = 4
	return cfg
}

func testScene(t *testing.T) *scene.Result {
	t.Helper()
	m, err := mesh.NewUntextured(mesh.TopologyTriangle,
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		[]uint32{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	b := scene.NewBuilder()
	b.AddLight(light.NewLightStyle(light.ModelDirectional))
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(m)})
	res, err := b.Build()
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	return res
}

func newTestEngine(t *testing.T, w *fakeWindow, rec *devicetest.Recorder, opts ...EngineBuilderOption) Engine {
	t.Helper()
	opts = append([]EngineBuilderOption{
		WithConfig(testConfig()),
		WithScene(testScene(t)),
		WithWindow(w),
		WithDevice(rec),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	e, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return e
}

func TestRunDeliversEventsThenFrame(t *testing.T) {
	w := &fakeWindow{
		width: 800, height: 600,
		frames: [][]window.Event{
			{window.KeyEvent{Key: window.KeyW, Action: window.Press}},
			nil,
		},
	}
	rec := devicetest.NewRecorder()

	var got []any
	e := newTestEngine(t, w, rec, WithUpdater(func(_ *entity.List, _ *scene.Scene, ev any) {
		got = append(got, ev)
	}))
	if err := e.Run(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 updater calls, got %d: %v", len(got), got)
	}
	if _, ok := got[0].(window.KeyEvent); !ok {
		t.Errorf("expected key event first, got %#v", got[0])
	}
	for i, want := range []uint64{1, 2} {
		fe, ok := got[i+1].(window.FrameEvent)
		if !ok || fe.Frame != want {
			t.Errorf("expected frame event %d, got %#v", want, got[i+1])
		}
	}
	if n := len(rec.Ops(devicetest.OpPresent)); n != 2 {
		t.Errorf("expected 2 presented frames, got %d", n)
	}
	if !w.closed {
		t.Errorf("expected window closed after Run")
	}
	if rec.Released {
		t.Errorf("expected a supplied device to be left to its owner")
	}
}

func TestResizeEventReconfiguresSurface(t *testing.T) {
	w := &fakeWindow{
		width: 800, height: 600,
		frames: [][]window.Event{{window.ResizeEvent{Width: 1024, Height: 512}}},
	}
	rec := devicetest.NewRecorder()
	e := newTestEngine(t, w, rec)
	if err := e.Run(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.SurfaceWidth != 1024 || rec.SurfaceHeight != 512 {
		t.Errorf("expected surface 1024x512, got %dx%d", rec.SurfaceWidth, rec.SurfaceHeight)
	}
}

func TestSurfaceLostResizesAndContinues(t *testing.T) {
	w := &fakeWindow{width: 640, height: 480, frames: [][]window.Event{nil, nil}}
	rec := devicetest.NewRecorder()
	e := newTestEngine(t, w, rec)
	rec.LoseSurface()

	if err := e.Run(); err != nil {
		t.Fatalf("expected surface loss to be recovered, got %v", err)
	}
	if rec.SurfaceWidth != 640 || rec.SurfaceHeight != 480 {
		t.Errorf("expected surface reconfigured to 640x480, got %dx%d", rec.SurfaceWidth, rec.SurfaceHeight)
	}
	if n := len(rec.Ops(devicetest.OpPresent)); n != 1 {
		t.Errorf("expected 1 presented frame after the lost one, got %d", n)
	}
}

func TestStopFromUpdater(t *testing.T) {
	w := &fakeWindow{width: 320, height: 200, frames: make([][]window.Event, 10)}
	rec := devicetest.NewRecorder()

	var e Engine
	e = newTestEngine(t, w, rec, WithUpdater(func(_ *entity.List, _ *scene.Scene, ev any) {
		if fe, ok := ev.(window.FrameEvent); ok && fe.Frame == 3 {
			e.Stop()
		}
	}))
	if err := e.Run(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n := len(rec.Ops(devicetest.OpPresent)); n != 3 {
		t.Errorf("expected 3 frames before stopping, got %d", n)
	}
}

func TestRunReturnsRenderErrors(t *testing.T) {
	w := &fakeWindow{width: 320, height: 200, frames: make([][]window.Event, 3)}
	rec := devicetest.NewRecorder()
	e := newTestEngine(t, w, rec, WithUpdater(func(_ *entity.List, sc *scene.Scene, ev any) {
		for len(sc.Lights) <= config.Default().MaxLights {
			sc.Lights = append(sc.Lights, light.NewLightStyle(light.ModelAmbient))
		}
	}))
	err := e.Run()
	if !errors.Is(err, config.ErrTooManyLights) {
		t.Errorf("expected ErrTooManyLights, got %v", err)
	}
	if !w.closed {
		t.Errorf("expected window closed after a failed Run")
	}
}

func TestNewEngineErrors(t *testing.T) {
	quiet := WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w := &fakeWindow{width: 320, height: 200}

	if _, err := NewEngine(quiet, WithWindow(w), WithDevice(devicetest.NewRecorder()), WithConfig(testConfig())); !errors.Is(err, ErrNoScene) {
		t.Errorf("expected ErrNoScene, got %v", err)
	}

	bad := testConfig()
	bad.MSAA = 3
	if _, err := NewEngine(quiet, WithWindow(w), WithDevice(devicetest.NewRecorder()), WithConfig(bad), WithScene(testScene(t))); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	rec := devicetest.NewRecorder()
	rec.FailBuffer = errors.New("out of memory")
	if _, err := NewEngine(quiet, WithWindow(w), WithDevice(rec), WithConfig(testConfig()), WithScene(testScene(t))); err == nil {
		t.Errorf("expected renderer construction error")
	}
}

func TestNewEngineSetsViewport(t *testing.T) {
	w := &fakeWindow{width: 1000, height: 500}
	res := testScene(t)
	_, err := NewEngine(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithWindow(w), WithDevice(devicetest.NewRecorder()), WithConfig(testConfig()), WithScene(res),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Scene.Camera.Width != 1000 || res.Scene.Camera.Height != 500 {
		t.Errorf("expected camera viewport 1000x500, got %dx%d", res.Scene.Camera.Width, res.Scene.Camera.Height)
	}
}
