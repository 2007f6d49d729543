package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device/devicetest"
	"github.com/Carmen-Shannon/umbra/engine/renderer/shader"
)

var (
	fillTriangle     = entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonFill, MeshType: mesh.KindEntity}
	wireTriangle     = entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
	texturedTriangle = entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonFill, MeshType: mesh.KindTextured}
	linePoints       = entity.RenderState{Topology: mesh.TopologyPoint, PolygonMode: entity.PolygonLine, MeshType: mesh.KindEntity}
)

func newCache(opts ...CacheOption) (*Cache, *devicetest.Recorder) {
	rec := devicetest.NewRecorder()
	return NewCache(rec, shader.DefaultLibrary(), opts...), rec
}

func TestGetReturnsCachedPipeline(t *testing.T) {
	c, rec := newCache(WithMaxLights(4))
	first, err := c.Get(device.PassColor, fillTriangle)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := c.Get(device.PassColor, fillTriangle)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first != second {
		t.Errorf("expected the same pipeline for an equal render state")
	}
	if c.Builds() != 1 || len(rec.Pipelines) != 1 {
		t.Errorf("expected 1 build, got %d builds and %d device pipelines", c.Builds(), len(rec.Pipelines))
	}
}

func TestDistinctStatesBuildOncePerState(t *testing.T) {
	c, rec := newCache(WithMaxLights(4))
	states := []entity.RenderState{fillTriangle, wireTriangle, texturedTriangle, fillTriangle, texturedTriangle, wireTriangle}
	for _, rs := range states {
		if _, err := c.Get(device.PassColor, rs); err != nil {
			t.Fatalf("%s: expected no error, got %v", rs, err)
		}
	}
	if c.Builds() != 3 {
		t.Errorf("expected 3 builds, got %d", c.Builds())
	}
	// fill and wireframe share the untextured module
	if c.ModuleBuilds() != 2 || len(rec.ShaderModules) != 2 {
		t.Errorf("expected 2 modules, got %d (%d on device)", c.ModuleBuilds(), len(rec.ShaderModules))
	}
	if c.Len(device.PassColor) != 3 || c.Len(device.PassShadow) != 0 {
		t.Errorf("expected 3 color and 0 shadow pipelines, got %d and %d", c.Len(device.PassColor), c.Len(device.PassShadow))
	}
}

func TestPrimitiveEmulation(t *testing.T) {
	tests := []struct {
		name     string
		state    entity.RenderState
		topology device.Topology
		source   DrawSource
	}{
		{"fill", fillTriangle, device.TopologyTriangleList, DrawMesh},
		{"wireframe", wireTriangle, device.TopologyLineList, DrawWireframe},
		{"points", entity.RenderState{Topology: mesh.TopologyTriangle, PolygonMode: entity.PolygonPoint}, device.TopologyPointList, DrawVertices},
		{"lines", entity.RenderState{Topology: mesh.TopologyLine, PolygonMode: entity.PolygonLine}, device.TopologyLineList, DrawMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newCache()
			p, err := c.Get(device.PassColor, tt.state)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.Topology != tt.topology || p.Source != tt.source {
				t.Errorf("expected topology %d source %d, got %d and %d", tt.topology, tt.source, p.Topology, p.Source)
			}
			if got := rec.Pipelines[0].Pipeline.Topology; got != tt.topology {
				t.Errorf("expected descriptor topology %d, got %d", tt.topology, got)
			}
		})
	}
}

func TestUnsupportedStateFailsBeforeDevice(t *testing.T) {
	c, rec := newCache()
	_, err := c.Get(device.PassColor, linePoints)
	if !errors.Is(err, device.ErrUnsupportedState) {
		t.Fatalf("expected ErrUnsupportedState, got %v", err)
	}
	if len(rec.ShaderModules) != 0 || len(rec.Pipelines) != 0 || c.Builds() != 0 {
		t.Errorf("expected no device work, got %d modules and %d pipelines", len(rec.ShaderModules), len(rec.Pipelines))
	}
}

func TestShadowPipelineDescriptor(t *testing.T) {
	c, rec := newCache(WithDepthBias(3, 2.5), WithSampleCount(4))
	shadow, err := c.Get(device.PassShadow, fillTriangle)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if shadow.VertexEntry != "vs_shadow" || shadow.FragmentEntry != "" {
		t.Errorf("expected a vertex-only shadow pipeline, got %q and %q", shadow.VertexEntry, shadow.FragmentEntry)
	}
	desc := rec.Pipelines[0].Pipeline
	if desc.DepthBias != 3 || desc.DepthBiasSlopeScale != 2.5 || desc.SampleCount != 0 {
		t.Errorf("unexpected shadow descriptor: %+v", desc)
	}

	color, err := c.Get(device.PassColor, fillTriangle)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if color == shadow {
		t.Errorf("expected separate pipelines per pass")
	}
	desc = rec.Pipelines[1].Pipeline
	if desc.SampleCount != 4 || desc.DepthBias != 0 || desc.FragmentEntry != "fs_main" {
		t.Errorf("unexpected color descriptor: %+v", desc)
	}
}

func TestModuleEnvironment(t *testing.T) {
	c, rec := newCache(WithMaxLights(7), WithSupportStorage(false))
	if _, err := c.Get(device.PassColor, texturedTriangle); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	src := string(rec.ShaderModules[0].Data)
	if !strings.Contains(src, "array<Light, 7>") {
		t.Errorf("expected a 7-light uniform array in the module")
	}
	if !strings.Contains(src, "texture_array") {
		t.Errorf("expected texture bindings in the textured module")
	}
	if strings.Contains(src, "#ifdef") || strings.Contains(src, "#include") {
		t.Errorf("expected no directives left in the module")
	}
}

func TestRebuildReleasesEverything(t *testing.T) {
	c, rec := newCache()
	if _, err := c.Get(device.PassColor, fillTriangle); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(device.PassShadow, fillTriangle); err != nil {
		t.Fatal(err)
	}
	c.Rebuild()
	for _, h := range append(rec.Pipelines, rec.ShaderModules...) {
		if !h.Released {
			t.Errorf("expected %s released", h)
		}
	}
	if c.Len(device.PassColor) != 0 {
		t.Errorf("expected an empty cache after rebuild")
	}
	if _, err := c.Get(device.PassColor, fillTriangle); err != nil {
		t.Fatalf("expected no error after rebuild, got %v", err)
	}
	if c.Builds() != 3 || c.ModuleBuilds() != 3 {
		t.Errorf("expected 3 builds and 3 modules, got %d and %d", c.Builds(), c.ModuleBuilds())
	}
}

func TestBuildErrors(t *testing.T) {
	boom := errors.New("boom")

	c, rec := newCache()
	rec.FailShaderModule = boom
	if _, err := c.Get(device.PassColor, fillTriangle); !errors.Is(err, boom) {
		t.Errorf("expected the module error, got %v", err)
	}

	c, rec = newCache()
	rec.FailPipeline = boom
	if _, err := c.Get(device.PassColor, fillTriangle); !errors.Is(err, boom) {
		t.Errorf("expected the pipeline error, got %v", err)
	}
	if c.Builds() != 0 {
		t.Errorf("expected no build to be counted, got %d", c.Builds())
	}

	c, rec = newCache(WithValidator(func(string) error { return shader.ErrInvalidShader }))
	if _, err := c.Get(device.PassColor, fillTriangle); !errors.Is(err, shader.ErrInvalidShader) {
		t.Errorf("expected ErrInvalidShader, got %v", err)
	}
	if len(rec.ShaderModules) != 0 {
		t.Errorf("expected invalid source to never reach the device")
	}
}
