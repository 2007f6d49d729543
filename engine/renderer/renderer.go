package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/light"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/Carmen-Shannon/umbra/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/umbra/engine/renderer/shader"
	"github.com/Carmen-Shannon/umbra/engine/renderer/uniform"
	"github.com/Carmen-Shannon/umbra/engine/scene"
	"github.com/Carmen-Shannon/umbra/engine/texture"
)

var errUnknownMesh = errors.New("unknown mesh handle")

// ErrMeshTypeMismatch is returned by Render when an entity's RenderState names a different
// mesh kind than the mesh it draws. The vertex layout of its pipeline would not match the buffer.
var ErrMeshTypeMismatch = errors.New("render state mesh type does not match mesh")

// Updater mutates the entity list and the scene between frames. ev is whatever the caller
// passes to Update, typically a window event or nil.
type Updater func(entities *entity.List, sc *scene.Scene, ev any)

// FrameStats counts the work encoded by one Render call.
type FrameStats struct {
	ShadowPasses     int
	ShadowDraws      int
	ColorDraws       int
	PipelineSwitches int
}

// Renderer draws a scene: one depth pass per shadowed light into its shadow-map layer,
// then one forward color pass over every entity.
// It is not safe for concurrent use; Update and Render run on the frame thread.
type Renderer struct {
	dev device.Device
	cfg *config.Config
	lib *shader.Library

	scene    *scene.Scene
	entities *entity.List
	arena    *mesh.Arena

	uniforms  *uniform.Manager
	pipelines *pipeline.Cache
	meshes    []*meshBuffers

	shadowMapSize uint32

	// per-frame scratch, reused across frames
	colorPipes  []*pipeline.Pipeline
	shadowPipes []*pipeline.Pipeline
	groups      []stateGroup
}

// stateGroup is the entity indices sharing one RenderState, in insertion order.
type stateGroup struct {
	state   entity.RenderState
	members []int
}

// New creates a Renderer for the scene and uploads everything it needs to dev.
// The light count is checked against cfg.MaxLights before any GPU allocation.
//
// Parameters:
//   - dev: the GPU backend
//   - sc: the scene; the renderer keeps and mutates it
//   - entities: the entity list; the renderer takes ownership
//   - arena: the meshes entities draw
//   - images: the texture array layers, in texture-index order
//   - cfg: the renderer settings, or nil for config.Default()
//   - opts: a variadic list of RendererBuilderOption functions
//
// Returns:
//   - *Renderer: the ready renderer
//   - error: config.ErrTooManyLights, a texture or device error; anything created is released
func New(dev device.Device, sc *scene.Scene, entities *entity.List, arena *mesh.Arena, images []mesh.Image, cfg *config.Config, opts ...RendererBuilderOption) (*Renderer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.CheckLights(len(sc.Lights)); err != nil {
		return nil, err
	}

	r := &Renderer{
		dev:           dev,
		cfg:           cfg,
		scene:         sc,
		entities:      entities,
		arena:         arena,
		shadowMapSize: common.Coalesce(sc.ShadowMapSize, cfg.ShadowMapSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.lib == nil {
		r.lib = shader.DefaultLibrary()
		if cfg.ShaderDir != "" {
			r.lib = shader.DirLibrary(cfg.ShaderDir)
		}
	}

	if err := r.init(images); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(images []mesh.Image) error {
	caps := r.dev.Capabilities()

	var err error
	r.uniforms, err = uniform.NewManager(r.dev, r.cfg.MaxLights, r.entities.Len(), uniform.WithWorkers(r.cfg.LightWorkers))
	if err != nil {
		return err
	}

	cacheOpts := []pipeline.CacheOption{
		pipeline.WithMaxLights(r.cfg.MaxLights),
		pipeline.WithSupportStorage(r.uniforms.StorageLights()),
		pipeline.WithSampleCount(r.cfg.MSAA),
		pipeline.WithDepthBias(r.cfg.DepthBias.Constant, r.cfg.DepthBias.Slope),
	}
	if r.cfg.ValidateShaders {
		cacheOpts = append(cacheOpts, pipeline.WithValidator(shader.Validate))
	}
	r.pipelines = pipeline.NewCache(r.dev, r.lib, cacheOpts...)

	if err := r.syncMeshes(); err != nil {
		return err
	}

	layers, err := texture.Stage(images, r.cfg.TextureSize)
	if err != nil {
		return err
	}
	if caps.MaxTextureArrayLayers > 0 && uint32(len(layers)) > caps.MaxTextureArrayLayers {
		return fmt.Errorf("%d texture layers exceed the device limit of %d", len(layers), caps.MaxTextureArrayLayers)
	}
	if err := r.dev.CreateTextureArray(&device.TextureArrayDescriptor{Size: layers[0].Width, Layers: layers}); err != nil {
		return fmt.Errorf("create texture array: %w", err)
	}

	if err := r.dev.CreateShadowMap(r.shadowMapSize, uint32(r.cfg.MaxLights)); err != nil {
		return fmt.Errorf("create shadow map: %w", err)
	}
	if err := r.dev.BindFrameResources(r.uniforms.FrameResources()); err != nil {
		return fmt.Errorf("bind frame resources: %w", err)
	}

	r.uniforms.UpdateScene(r.scene.Camera, len(r.scene.Lights))
	common.Logger().Info("renderer ready",
		"meshes", len(r.meshes), "entities", r.entities.Len(), "lights", len(r.scene.Lights),
		"textures", len(layers), "storageLights", r.uniforms.StorageLights())
	return nil
}

// Scene returns the scene the renderer draws.
func (r *Renderer) Scene() *scene.Scene {
	return r.scene
}

// Entities returns the renderer-owned entity list.
func (r *Renderer) Entities() *entity.List {
	return r.entities
}

// Pipelines returns the pipeline cache.
func (r *Renderer) Pipelines() *pipeline.Cache {
	return r.pipelines
}

// Update runs fn against the entities and the scene, then uploads meshes added to the arena
// and resizes the entity buffer to the new entity count.
//
// Parameters:
//   - fn: the updater, or nil to only reconcile
//   - ev: passed through to fn
//
// Returns:
//   - error: a wrapped device error from reconciliation
func (r *Renderer) Update(fn Updater, ev any) error {
	if fn != nil {
		fn(r.entities, r.scene, ev)
	}
	return r.reconcile()
}

func (r *Renderer) reconcile() error {
	if err := r.syncMeshes(); err != nil {
		return err
	}
	resized, err := r.uniforms.ResizeEntities(r.entities.Len())
	if err != nil {
		return err
	}
	if resized {
		if err := r.dev.BindFrameResources(r.uniforms.FrameResources()); err != nil {
			return fmt.Errorf("bind frame resources: %w", err)
		}
	}
	return nil
}

// syncMeshes uploads every arena mesh that has no GPU buffers yet.
func (r *Renderer) syncMeshes() error {
	for h, m := range r.arena.All() {
		if int(h) < len(r.meshes) {
			continue
		}
		mb, err := uploadMesh(r.dev, h, m)
		if err != nil {
			return err
		}
		r.meshes = append(r.meshes, mb)
	}
	return nil
}

// Render encodes and submits one frame.
//
// The lights are packed and uploaded, then every shadowed light gets a depth pass into its
// layer, drawing shadow casters grouped by RenderState. The color pass then draws every entity
// in list order, switching pipelines only when the RenderState changes.
//
// Returns:
//   - FrameStats: the work encoded
//   - error: device.ErrSurfaceLost when no frame could be acquired (nothing is submitted),
//     config.ErrTooManyLights, or a pipeline or device error
func (r *Renderer) Render() (FrameStats, error) {
	var stats FrameStats

	if err := r.reconcile(); err != nil {
		return stats, err
	}

	lights := r.scene.Lights
	records, err := r.uniforms.UpdateLight(lights, r.shadowMapSize)
	if err != nil {
		return stats, err
	}
	r.uniforms.UpdateScene(r.scene.Camera, len(lights))

	if err := r.prepare(records); err != nil {
		return stats, err
	}

	if err := r.dev.BeginFrame(); err != nil {
		if errors.Is(err, device.ErrSurfaceLost) {
			common.Logger().Warn("surface lost, frame skipped")
		}
		return stats, err
	}

	for li := range records {
		if records[li].UseShadow == 0 {
			continue
		}
		if err := r.shadowPass(li, &lights[li], &stats); err != nil {
			r.dev.AbandonFrame()
			return stats, err
		}
	}

	if err := r.colorPass(&stats); err != nil {
		r.dev.AbandonFrame()
		return stats, err
	}

	if err := r.dev.Submit(); err != nil {
		return stats, fmt.Errorf("submit: %w", err)
	}
	r.dev.Present()
	return stats, nil
}

// prepare writes every entity record and resolves every pipeline the frame needs,
// so nothing can fail once encoding has started.
func (r *Renderer) prepare(records []light.GPULight) error {
	n := r.entities.Len()
	r.colorPipes = r.colorPipes[:0]
	r.shadowPipes = r.shadowPipes[:0]
	r.groups = r.groups[:0]

	shadows := false
	for i := range records {
		if records[i].UseShadow != 0 {
			shadows = true
			break
		}
	}

	for i := range n {
		e := r.entities.At(i)
		if int(e.Mesh) >= len(r.meshes) {
			return fmt.Errorf("entity %d: %w: %d", e.ID(), errUnknownMesh, e.Mesh)
		}
		if kind := r.meshes[e.Mesh].mesh.Kind(); e.State.MeshType != kind {
			return fmt.Errorf("entity %d: %w: state %s, mesh %s", e.ID(), ErrMeshTypeMismatch, e.State, kind)
		}
		r.uniforms.WriteEntity(i, e)

		p, err := r.pipelines.Get(device.PassColor, e.State)
		if err != nil {
			return err
		}
		if p.Source == pipeline.DrawWireframe {
			if err := r.meshes[e.Mesh].ensureWireframe(r.dev, e.Mesh); err != nil {
				return err
			}
		}
		r.colorPipes = append(r.colorPipes, p)

		var sp *pipeline.Pipeline
		if shadows && e.CastShadow {
			if sp, err = r.pipelines.Get(device.PassShadow, e.State); err != nil {
				return err
			}
			r.addToGroup(e.State, i)
		}
		r.shadowPipes = append(r.shadowPipes, sp)
	}
	return nil
}

func (r *Renderer) addToGroup(rs entity.RenderState, i int) {
	for g := range r.groups {
		if r.groups[g].state == rs {
			r.groups[g].members = append(r.groups[g].members, i)
			return
		}
	}
	// reuse a previous frame's member slice when one is available
	if len(r.groups) < cap(r.groups) {
		r.groups = r.groups[:len(r.groups)+1]
		g := &r.groups[len(r.groups)-1]
		g.state = rs
		g.members = append(g.members[:0], i)
		return
	}
	r.groups = append(r.groups, stateGroup{state: rs, members: []int{i}})
}

func (r *Renderer) shadowPass(li int, l *light.LightStyle, stats *FrameStats) error {
	size := light.ShadowResolution(l, r.shadowMapSize)
	if err := r.dev.BeginShadowPass(uint32(li), size); err != nil {
		return fmt.Errorf("shadow pass %d: %w", li, err)
	}
	stats.ShadowPasses++

	r.dev.SetBindGroup(0, device.BindGroupShadowCamera, uint32(r.uniforms.ShadowCameraOffset(li)))
	for _, g := range r.groups {
		p := r.shadowPipes[g.members[0]]
		r.dev.SetPipeline(p.Handle())
		stats.PipelineSwitches++
		for _, i := range g.members {
			r.dev.SetBindGroup(1, device.BindGroupEntity, uint32(r.uniforms.EntityOffset(i)))
			r.draw(r.entities.At(i), p)
			stats.ShadowDraws++
		}
	}
	r.dev.EndPass()
	return nil
}

func (r *Renderer) colorPass(stats *FrameStats) error {
	if err := r.dev.BeginColorPass(r.scene.Background); err != nil {
		return fmt.Errorf("color pass: %w", err)
	}
	r.dev.SetBindGroup(0, device.BindGroupScene)

	var current *pipeline.Pipeline
	for i, p := range r.colorPipes {
		if p != current {
			r.dev.SetPipeline(p.Handle())
			stats.PipelineSwitches++
			current = p
		}
		r.dev.SetBindGroup(1, device.BindGroupEntity, uint32(r.uniforms.EntityOffset(i)))
		r.draw(r.entities.At(i), p)
		stats.ColorDraws++
	}
	r.dev.EndPass()
	return nil
}

// draw binds e's mesh buffers and issues an indexed draw when the pipeline's draw source
// has indices, otherwise a draw over every vertex.
func (r *Renderer) draw(e *entity.Entity, p *pipeline.Pipeline) {
	mb := r.meshes[e.Mesh]
	r.dev.SetVertexBuffer(mb.vertex)
	switch {
	case p.Source == pipeline.DrawWireframe:
		r.dev.SetIndexBuffer(mb.wire)
		r.dev.DrawIndexed(mb.wireCount)
	case p.Source == pipeline.DrawMesh && mb.index != nil:
		r.dev.SetIndexBuffer(mb.index)
		r.dev.DrawIndexed(mb.indexCount)
	default:
		r.dev.Draw(mb.vertexCount)
	}
}

// Resize reconfigures the surface and the camera viewport. Zero sizes are ignored.
//
// Parameters:
//   - width: the new framebuffer width in pixels
//   - height: the new framebuffer height in pixels
//
// Returns:
//   - error: a wrapped surface configuration error
func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.dev.ConfigureSurface(width, height); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	r.scene.SetViewport(width, height)
	r.uniforms.UpdateScene(r.scene.Camera, len(r.scene.Lights))
	return nil
}

// RebuildPipelines drops every compiled pipeline and shader module. They are rebuilt on the
// next Render, picking up edited templates.
func (r *Renderer) RebuildPipelines() {
	r.pipelines.Rebuild()
}

// Release frees every GPU object the renderer created. The device itself is left to its owner.
func (r *Renderer) Release() {
	for _, mb := range r.meshes {
		mb.release()
	}
	r.meshes = nil
	if r.pipelines != nil {
		r.pipelines.Release()
		r.pipelines = nil
	}
	if r.uniforms != nil {
		r.uniforms.Release()
		r.uniforms = nil
	}
}
