package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/light"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/umbra/engine/renderer/uniform"
	"github.com/Carmen-Shannon/umbra/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ValidateShaders = false
	cfg.TextureSize = 4
	return cfg
}

func triangleMesh(t *testing.T, indexed bool) *mesh.Untextured {
	t.Helper()
	var indices []uint32
	if indexed {
		indices = []uint32{0, 1, 2}
	}
	m, err := mesh.NewUntextured(mesh.TopologyTriangle,
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		indices)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func quadMesh(t *testing.T) *mesh.Untextured {
	t.Helper()
	m, err := mesh.NewUntextured(mesh.TopologyTriangle,
		[]mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		[]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		[]uint32{0, 1, 2, 0, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func shadowedLight() light.LightStyle {
	return light.NewLightStyle(light.ModelDirectional,
		light.WithPosition(mgl32.Vec3{0, 10, 1}),
		light.WithShadow(light.ShadowStyle{Resolution: 512}))
}

func build(t *testing.T, b *scene.Builder) (*Renderer, *devicetest.Recorder) {
	t.Helper()
	res, err := b.Build()
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	rec := devicetest.NewRecorder()
	r, err := New(rec, res.Scene, res.Entities, res.Arena, res.Images, testConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	t.Cleanup(r.Release)
	return r, rec
}

func render(t *testing.T, r *Renderer) FrameStats {
	t.Helper()
	stats, err := r.Render()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return stats
}

func TestSingleUnshadowedLight(t *testing.T) {
	b := scene.NewBuilder()
	b.AddLight(light.NewLightStyle(light.ModelDirectional))
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(triangleMesh(t, false))})
	r, rec := build(t, b)

	stats := render(t, r)
	if stats.ShadowPasses != 0 || stats.ShadowDraws != 0 {
		t.Errorf("expected no shadow work, got %+v", stats)
	}
	if stats.ColorDraws != 1 || rec.Draws(device.PassColor) != 1 {
		t.Errorf("expected 1 color draw, got %d (%d recorded)", stats.ColorDraws, rec.Draws(device.PassColor))
	}
	if len(rec.Ops(devicetest.OpSubmit)) != 1 || len(rec.Ops(devicetest.OpPresent)) != 1 {
		t.Errorf("expected one submit and one present")
	}
}

func TestFrameOrder(t *testing.T) {
	b := scene.NewBuilder(scene.WithBackground([4]float64{0.1, 0.2, 0.3, 1}))
	b.AddLight(shadowedLight())
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(quadMesh(t))})
	r, rec := build(t, b)
	render(t, r)

	var ops []devicetest.Op
	for _, c := range rec.Commands {
		switch c.Op {
		case devicetest.OpBeginFrame, devicetest.OpBeginShadowPass, devicetest.OpBeginColorPass, devicetest.OpSubmit, devicetest.OpPresent:
			ops = append(ops, c.Op)
		}
	}
	want := []devicetest.Op{devicetest.OpBeginFrame, devicetest.OpBeginShadowPass, devicetest.OpBeginColorPass, devicetest.OpSubmit, devicetest.OpPresent}
	if len(ops) != len(want) {
		t.Fatalf("expected %v, got %v", want, ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("step %d: expected %s, got %s", i, want[i], ops[i])
		}
	}

	pass := rec.Ops(devicetest.OpBeginShadowPass)[0]
	if pass.Layer != 0 || pass.Size != 512 {
		t.Errorf("expected layer 0 at 512, got layer %d at %d", pass.Layer, pass.Size)
	}
	if clear := rec.Ops(devicetest.OpBeginColorPass)[0].Clear; clear != [4]float64{0.1, 0.2, 0.3, 1} {
		t.Errorf("expected the background as clear color, got %v", clear)
	}
}

func TestShadowPassGroupsByRenderState(t *testing.T) {
	b := scene.NewBuilder()
	b.AddLight(shadowedLight())
	b.AddLight(light.NewLightStyle(light.ModelAmbient))
	b.AddLight(shadowedLight())
	h := b.AddMesh(quadMesh(t))
	wire := entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	b.AddEntity(scene.EntityDescriptor{Mesh: h, State: &wire})
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	b.AddEntity(scene.EntityDescriptor{Mesh: h, Options: []entity.EntityBuilderOption{entity.WithShadows(true, false)}})
	r, rec := build(t, b)

	stats := render(t, r)
	if stats.ShadowPasses != 2 {
		t.Fatalf("expected 2 shadow passes, got %d", stats.ShadowPasses)
	}
	if stats.ShadowDraws != 6 || rec.Draws(device.PassShadow) != 6 {
		t.Errorf("expected 3 casters drawn per shadowed light, got %d", stats.ShadowDraws)
	}
	if layers := rec.Ops(devicetest.OpBeginShadowPass); layers[0].Layer != 0 || layers[1].Layer != 2 {
		t.Errorf("expected layers 0 and 2, got %d and %d", layers[0].Layer, layers[1].Layer)
	}

	// within the first shadow pass: camera at slot 0, then entities 0 and 2 before entity 1
	var offsets []uint32
	var switches int
	for _, c := range rec.Commands {
		if c.Op == devicetest.OpBeginColorPass || (c.Op == devicetest.OpBeginShadowPass && c.Layer == 2) {
			break
		}
		switch {
		case c.Op == devicetest.OpSetPipeline:
			switches++
		case c.Op == devicetest.OpSetBindGroup && c.Group == device.BindGroupEntity:
			offsets = append(offsets, c.Offsets[0])
		case c.Op == devicetest.OpSetBindGroup && c.Group == device.BindGroupShadowCamera && c.Offsets[0] != 0:
			t.Errorf("expected shadow camera 0 at offset 0, got %d", c.Offsets[0])
		}
	}
	if switches != 2 {
		t.Errorf("expected one pipeline per render state, got %d switches", switches)
	}
	want := []uint32{0, 512, 256}
	if len(offsets) != len(want) {
		t.Fatalf("expected entity offsets %v, got %v", want, offsets)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("draw %d: expected offset %d, got %d", i, want[i], offsets[i])
		}
	}

	if r.Pipelines().Len(device.PassShadow) != 2 || r.Pipelines().Len(device.PassColor) != 2 {
		t.Errorf("expected 2 pipelines per pass, got %d shadow and %d color",
			r.Pipelines().Len(device.PassShadow), r.Pipelines().Len(device.PassColor))
	}
}

func TestDrawSources(t *testing.T) {
	wire := entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
	points := entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonPoint, MeshType: mesh.KindEntity}
	tests := []struct {
		name    string
		indexed bool
		state   *entity.RenderState
		op      devicetest.Op
		count   uint32
	}{
		{"indexed", true, nil, devicetest.OpDrawIndexed, 6},
		{"non-indexed", false, nil, devicetest.OpDraw, 3},
		{"wireframe", true, &wire, devicetest.OpDrawIndexed, 12},
		{"points", true, &points, devicetest.OpDraw, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scene.NewBuilder()
			var m mesh.Mesh = triangleMesh(t, false)
			if tt.indexed {
				m = quadMesh(t)
			}
			b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(m), State: tt.state})
			r, rec := build(t, b)
			render(t, r)

			draws := append(rec.Ops(devicetest.OpDraw), rec.Ops(devicetest.OpDrawIndexed)...)
			if len(draws) != 1 {
				t.Fatalf("expected 1 draw, got %d", len(draws))
			}
			if draws[0].Op != tt.op || draws[0].Count != tt.count {
				t.Errorf("expected %s of %d, got %s of %d", tt.op, tt.count, draws[0].Op, draws[0].Count)
			}
		})
	}
}

func TestColorPassSwitchesOnStateChange(t *testing.T) {
	wire := entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
	b := scene.NewBuilder()
	h := b.AddMesh(quadMesh(t))
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	b.AddEntity(scene.EntityDescriptor{Mesh: h, State: &wire})
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	r, _ := build(t, b)

	stats := render(t, r)
	if stats.PipelineSwitches != 3 {
		t.Errorf("expected 3 pipeline switches, got %d", stats.PipelineSwitches)
	}
	if r.Pipelines().Builds() != 2 {
		t.Errorf("expected 2 pipeline builds, got %d", r.Pipelines().Builds())
	}
	render(t, r)
	if r.Pipelines().Builds() != 2 {
		t.Errorf("expected no rebuild on the second frame, got %d builds", r.Pipelines().Builds())
	}
}

func TestSurfaceLost(t *testing.T) {
	b := scene.NewBuilder()
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(quadMesh(t))})
	r, rec := build(t, b)

	rec.LoseSurface()
	if _, err := r.Render(); !errors.Is(err, device.ErrSurfaceLost) {
		t.Fatalf("expected ErrSurfaceLost, got %v", err)
	}
	if len(rec.Commands) != 0 {
		t.Errorf("expected nothing encoded, got %d commands", len(rec.Commands))
	}

	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stats := render(t, r)
	if stats.ColorDraws != 1 {
		t.Errorf("expected the next frame to draw, got %+v", stats)
	}
}

func TestResize(t *testing.T) {
	b := scene.NewBuilder(scene.WithViewport(800, 600))
	r, rec := build(t, b)

	if err := r.Resize(0, 600); err != nil || rec.Configures != 0 {
		t.Errorf("expected a zero size to be ignored")
	}
	if err := r.Resize(1920, 1080); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.SurfaceWidth != 1920 || rec.SurfaceHeight != 1080 {
		t.Errorf("expected the surface reconfigured, got %dx%d", rec.SurfaceWidth, rec.SurfaceHeight)
	}
	if cam := r.Scene().Camera; cam.Width != 1920 || cam.Height != 1080 {
		t.Errorf("expected the camera viewport updated, got %dx%d", cam.Width, cam.Height)
	}
}

func TestTooManyLightsFailsBeforeAllocation(t *testing.T) {
	b := scene.NewBuilder(scene.WithMaxLights(8))
	for range 5 {
		b.AddLight(light.NewLightStyle(light.ModelDirectional))
	}
	res, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rec := devicetest.NewRecorder()
	_, err = New(rec, res.Scene, res.Entities, res.Arena, res.Images, testConfig())
	if !errors.Is(err, config.ErrTooManyLights) {
		t.Fatalf("expected ErrTooManyLights, got %v", err)
	}
	if len(rec.Buffers) != 0 || len(rec.Pipelines) != 0 || rec.ShadowMapLayers != 0 {
		t.Errorf("expected no GPU allocation, got %d buffers", len(rec.Buffers))
	}
}

func TestConstructionFailureReleases(t *testing.T) {
	b := scene.NewBuilder()
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(quadMesh(t))})
	res, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rec := devicetest.NewRecorder()
	rec.FailShadowMap = errors.New("out of memory")
	if _, err := New(rec, res.Scene, res.Entities, res.Arena, res.Images, testConfig()); err == nil {
		t.Fatalf("expected an error")
	}
	if live := rec.LiveBuffers(); len(live) != 0 {
		t.Errorf("expected every buffer released, %d live", len(live))
	}
}

func TestDynamicPush(t *testing.T) {
	b := scene.NewBuilder()
	h := b.AddMesh(quadMesh(t))
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	res, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rec := devicetest.NewRecorder()
	r, err := New(rec, res.Scene, res.Entities, res.Arena, res.Images, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()
	render(t, r)

	tri := res.Arena.Add(triangleMesh(t, false))
	err = r.Update(func(entities *entity.List, sc *scene.Scene, ev any) {
		entities.Push(entity.NewEntity(tri, entity.DefaultRenderState(triangleMesh(t, false))))
		sc.Background = ev.([4]float64)
	}, [4]float64{1, 1, 1, 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.BindCount != 2 {
		t.Errorf("expected frame resources rebound after the entity buffer grew, got %d binds", rec.BindCount)
	}
	if got := rec.BufferByLabel(uniform.LabelEntities).Size; got != 2*256 {
		t.Errorf("expected a 2-slot entity buffer, got %d bytes", got)
	}

	rec.Reset()
	stats := render(t, r)
	if stats.ColorDraws != 2 {
		t.Errorf("expected 2 color draws, got %d", stats.ColorDraws)
	}
	if draws := rec.Ops(devicetest.OpDraw); len(draws) != 1 || draws[0].Count != 3 {
		t.Errorf("expected the pushed triangle drawn non-indexed")
	}

	// entities pushed without Update are picked up by Render
	r.Entities().Push(entity.NewEntity(h, entity.DefaultRenderState(quadMesh(t))))
	rec.Reset()
	if stats := render(t, r); stats.ColorDraws != 3 {
		t.Errorf("expected 3 color draws, got %d", stats.ColorDraws)
	}
}

func TestUnsupportedStateFailsBeforeEncoding(t *testing.T) {
	pointMesh, err := mesh.NewUntextured(mesh.TopologyPoint,
		[]mgl32.Vec3{{0, 0, 0}}, []mgl32.Vec3{{0, 1, 0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	bad := entity.RenderState{Topology: mesh.TopologyPoint, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
	b := scene.NewBuilder()
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(pointMesh), State: &bad})
	r, rec := build(t, b)

	if _, err := r.Render(); !errors.Is(err, device.ErrUnsupportedState) {
		t.Fatalf("expected ErrUnsupportedState, got %v", err)
	}
	if len(rec.Ops(devicetest.OpBeginFrame)) != 0 {
		t.Errorf("expected no frame to be started")
	}
}

func TestPushedMeshTypeMismatchFailsBeforeEncoding(t *testing.T) {
	b := scene.NewBuilder()
	h := b.AddMesh(quadMesh(t))
	b.AddEntity(scene.EntityDescriptor{Mesh: h})
	r, rec := build(t, b)

	bad := entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonFill, MeshType: mesh.KindTextured}
	r.Entities().Push(entity.NewEntity(h, bad))

	if _, err := r.Render(); !errors.Is(err, ErrMeshTypeMismatch) {
		t.Fatalf("expected ErrMeshTypeMismatch, got %v", err)
	}
	if len(rec.Ops(devicetest.OpBeginFrame)) != 0 {
		t.Errorf("expected no frame to be started")
	}
	if builds := r.Pipelines().Builds(); builds != 1 {
		t.Errorf("expected only the valid entity's pipeline built, got %d", builds)
	}
}

func TestFailedPassAbandonsFrame(t *testing.T) {
	tests := []struct {
		name   string
		fail   func(rec *devicetest.Recorder, err error)
		lights bool
	}{
		{"shadow pass", func(rec *devicetest.Recorder, err error) { rec.FailShadowPass = err }, true},
		{"color pass", func(rec *devicetest.Recorder, err error) { rec.FailColorPass = err }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scene.NewBuilder()
			b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(quadMesh(t))})
			if tt.lights {
				b.AddLight(shadowedLight())
			}
			r, rec := build(t, b)

			passErr := errors.New("pass rejected")
			tt.fail(rec, passErr)
			if _, err := r.Render(); !errors.Is(err, passErr) {
				t.Fatalf("expected the pass error, got %v", err)
			}
			if len(rec.Ops(devicetest.OpAbandonFrame)) != 1 {
				t.Errorf("expected the frame abandoned once")
			}
			if len(rec.Ops(devicetest.OpSubmit)) != 0 || len(rec.Ops(devicetest.OpPresent)) != 0 {
				t.Errorf("expected nothing submitted or presented")
			}

			rec.FailShadowPass, rec.FailColorPass = nil, nil
			rec.Reset()
			render(t, r)
			if len(rec.Ops(devicetest.OpPresent)) != 1 {
				t.Errorf("expected the next frame presented")
			}
		})
	}
}

func TestRebuildPipelines(t *testing.T) {
	b := scene.NewBuilder()
	b.AddEntity(scene.EntityDescriptor{Mesh: b.AddMesh(quadMesh(t))})
	r, _ := build(t, b)
	render(t, r)
	r.RebuildPipelines()
	render(t, r)
	if r.Pipelines().Builds() != 2 {
		t.Errorf("expected the pipeline built again after a rebuild, got %d builds", r.Pipelines().Builds())
	}
}

func TestDeviceOptions(t *testing.T) {
	cfg := config.Default()
	cfg.PresentMode = config.PresentUncapped
	cfg.MSAA = 1
	d := &WGPUDevice{}
	for _, opt := range DeviceOptions(cfg) {
		opt(d)
	}
	if d.presentMode != PresentModeUncapped || d.msaa != MSAAOff {
		t.Errorf("expected uncapped without MSAA, got %d and %d", d.presentMode, d.msaa)
	}
}
