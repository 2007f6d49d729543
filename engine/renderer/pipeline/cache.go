package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/renderer/shader"
)

// moduleKey identifies one shader module variant. Everything else in the
// shader environment is fixed for the lifetime of a Cache.
type moduleKey struct {
	pass           device.Pass
	useTexture     bool
	supportStorage bool
}

type module struct {
	handle   device.Handle
	vertex   string
	fragment string
}

// Cache builds render pipelines on first use and returns the same Pipeline for every
// later request with an equal RenderState in the same pass.
// It is not safe for concurrent use; the renderer drives it from the frame thread.
type Cache struct {
	dev device.Device
	lib *shader.Library

	maxLights      int
	supportStorage bool
	validate       func(src string) error
	sampleCount    uint32
	depthBias      int32
	depthBiasSlope float32

	pipelines map[device.Pass]map[entity.RenderState]*Pipeline
	modules   map[moduleKey]*module

	builds       int
	moduleBuilds int
}

// NewCache creates an empty Cache that compiles templates from lib on dev.
//
// Parameters:
//   - dev: the device pipelines and modules are created on
//   - lib: the shader library holding the main and shadow templates
//   - opts: a variadic list of CacheOption functions to configure the cache
//
// Returns:
//   - *Cache: a new, empty cache
func NewCache(dev device.Device, lib *shader.Library, opts ...CacheOption) *Cache {
	c := &Cache{
		dev:         dev,
		lib:         lib,
		maxLights:   1,
		sampleCount: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.pipelines = map[device.Pass]map[entity.RenderState]*Pipeline{
		device.PassColor:  {},
		device.PassShadow: {},
	}
	c.modules = make(map[moduleKey]*module)
}

// Get returns the pipeline for rs in pass, building it and its shader module on first use.
//
// Parameters:
//   - pass: device.PassColor or device.PassShadow
//   - rs: the entity's render state
//
// Returns:
//   - *Pipeline: the cached or newly built pipeline
//   - error: device.ErrUnsupportedState before any device call, or a wrapped expansion,
//     validation or device error
func (c *Cache) Get(pass device.Pass, rs entity.RenderState) (*Pipeline, error) {
	byState, ok := c.pipelines[pass]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown pass %d", pass)
	}
	if p, ok := byState[rs]; ok {
		return p, nil
	}

	topology, source, err := Primitive(rs)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s %s: %w", pass, rs, err)
	}

	mod, err := c.module(pass, rs.MeshType == mesh.KindTextured)
	if err != nil {
		return nil, err
	}

	desc := &device.PipelineDescriptor{
		Label:       fmt.Sprintf("%s:%s", pass, rs),
		Pass:        pass,
		Module:      mod.handle,
		VertexEntry: mod.vertex,
		Layout:      mesh.Layout(rs.MeshType),
		Topology:    topology,
		CullMode:    device.CullNone,
	}
	switch pass {
	case device.PassColor:
		desc.FragmentEntry = mod.fragment
		desc.SampleCount = c.sampleCount
	case device.PassShadow:
		desc.DepthBias = c.depthBias
		desc.DepthBiasSlopeScale = c.depthBiasSlope
	}

	handle, err := c.dev.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", desc.Label, err)
	}

	p := &Pipeline{
		Key:           rs,
		Pass:          pass,
		Topology:      topology,
		Source:        source,
		VertexEntry:   desc.VertexEntry,
		FragmentEntry: desc.FragmentEntry,
		handle:        handle,
	}
	byState[rs] = p
	c.builds++
	common.Logger().Debug("pipeline built", "pass", pass.String(), "state", rs.String(), "builds", c.builds)
	return p, nil
}

// module returns the memoized shader module for the variant, expanding and compiling it once.
func (c *Cache) module(pass device.Pass, useTexture bool) (*module, error) {
	key := moduleKey{pass: pass, useTexture: useTexture, supportStorage: c.supportStorage}
	if m, ok := c.modules[key]; ok {
		return m, nil
	}

	template := shader.TemplateMain
	if pass == device.PassShadow {
		template = shader.TemplateShadow
	}
	env := shader.Env{
		Flags: map[string]bool{
			shader.FlagHasTexture:     useTexture,
			shader.FlagUseTexture:     useTexture,
			shader.FlagSupportStorage: c.supportStorage,
		},
		Consts: map[string]int{shader.ConstMaxLightNum: c.maxLights},
	}

	src, err := c.lib.Expand(template, env)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", template, err)
	}
	if c.validate != nil {
		if err := c.validate(src); err != nil {
			return nil, fmt.Errorf("validate %s: %w", template, err)
		}
	}

	vertex, fragment := shader.EntryPoints(src)
	if vertex == "" || (pass == device.PassColor && fragment == "") {
		return nil, fmt.Errorf("%w: %s is missing an entry point", shader.ErrInvalidShader, template)
	}

	label := fmt.Sprintf("%s(texture=%t,storage=%t)", template, useTexture, c.supportStorage)
	handle, err := c.dev.CreateShaderModule(label, src)
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", label, err)
	}

	m := &module{handle: handle, vertex: vertex, fragment: fragment}
	c.modules[key] = m
	c.moduleBuilds++
	return m, nil
}

// Builds returns how many pipelines have been built since the cache was created.
func (c *Cache) Builds() int {
	return c.builds
}

// ModuleBuilds returns how many shader modules have been compiled since the cache was created.
func (c *Cache) ModuleBuilds() int {
	return c.moduleBuilds
}

// Len returns the number of pipelines currently cached for pass.
func (c *Cache) Len(pass device.Pass) int {
	return len(c.pipelines[pass])
}

// Rebuild releases every cached pipeline and module. The next Get recompiles from the library,
// so edited templates under a DirLibrary take effect.
func (c *Cache) Rebuild() {
	c.Release()
	c.reset()
	common.Logger().Info("pipeline cache cleared")
}

// Release frees every pipeline and module owned by the cache.
func (c *Cache) Release() {
	for _, byState := range c.pipelines {
		for _, p := range byState {
			p.Release()
		}
	}
	for _, m := range c.modules {
		if m.handle != nil {
			m.handle.Release()
		}
	}
	c.pipelines = nil
	c.modules = nil
}
