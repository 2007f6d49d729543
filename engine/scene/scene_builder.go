package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/umbra/engine/camera"
	"github.com/Carmen-Shannon/umbra/engine/config"
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/light"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUnknownMesh is returned when a descriptor references a handle the builder never issued.
	ErrUnknownMesh = errors.New("scene: unknown mesh handle")

	// ErrMeshTypeMismatch is returned when a RenderState's MeshType disagrees with the mesh it draws.
	ErrMeshTypeMismatch = errors.New("scene: render state mesh type does not match mesh")
)

// EntityDescriptor describes one entity and, through Children, the entities attached to it.
// Children are positioned relative to their parent's world matrix.
type EntityDescriptor struct {
	Mesh mesh.Handle
	// State overrides the default filled RenderState derived from the mesh.
	State    *entity.RenderState
	Options  []entity.EntityBuilderOption
	Children []EntityDescriptor
}

// Result is everything Build produces. The renderer takes ownership of all of it.
type Result struct {
	Scene    *Scene
	Entities *entity.List
	Arena    *mesh.Arena
	Images   []mesh.Image
}

// Builder assembles a Scene, its entities and the meshes and images they use.
type Builder struct {
	scene       Scene
	maxLights   int
	arena       *mesh.Arena
	images      []mesh.Image
	meshImages  map[mesh.Handle]int
	descriptors []EntityDescriptor
}

// BuilderOption is a functional option for configuring a Builder.
type BuilderOption func(b *Builder)

// WithCamera sets the scene camera.
//
// Parameters:
//   - cam: the camera style
//
// Returns:
//   - BuilderOption: option function to apply
func WithCamera(cam camera.CameraStyle) BuilderOption {
	return func(b *Builder) {
		b.scene.Camera = cam
	}
}

// WithViewport sets the camera's viewport size. Apply after WithCamera.
func WithViewport(width, height uint32) BuilderOption {
	return func(b *Builder) {
		b.scene.Camera.Width = width
		b.scene.Camera.Height = height
	}
}

// WithShadowMapSize sets the side of each shadow-map layer.
func WithShadowMapSize(size uint32) BuilderOption {
	return func(b *Builder) {
		b.scene.ShadowMapSize = size
	}
}

// WithBackground sets the color pass clear color.
func WithBackground(rgba [4]float64) BuilderOption {
	return func(b *Builder) {
		b.scene.Background = rgba
	}
}

// WithMaxLights sets how many lights Build accepts. It must match the renderer's capacity.
func WithMaxLights(n int) BuilderOption {
	return func(b *Builder) {
		b.maxLights = n
	}
}

// NewBuilder creates a Builder with the default camera, a 2048 shadow map and room for 4 lights.
func NewBuilder(options ...BuilderOption) *Builder {
	defaults := config.Default()
	b := &Builder{
		scene: Scene{
			Camera:        camera.NewCameraStyle(),
			ShadowMapSize: defaults.ShadowMapSize,
			Background:    [4]float64{0.05, 0.05, 0.08, 1},
		},
		maxLights:  defaults.MaxLights,
		arena:      mesh.NewArena(),
		meshImages: make(map[mesh.Handle]int),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// AddMesh stores m in the scene's arena. A textured mesh's image is registered with it.
//
// Parameters:
//   - m: the mesh to store
//
// Returns:
//   - mesh.Handle: the handle entities use to draw m
func (b *Builder) AddMesh(m mesh.Mesh) mesh.Handle {
	h := b.arena.Add(m)
	if tm, ok := m.(*mesh.Textured); ok {
		b.meshImages[h] = b.AddImage(tm.Image())
	}
	return h
}

// AddImage appends img to the texture array and returns its layer index.
func (b *Builder) AddImage(img mesh.Image) int {
	b.images = append(b.images, img)
	return len(b.images) - 1
}

// AddEntity queues d and its children. Descriptors are resolved in Build.
func (b *Builder) AddEntity(d EntityDescriptor) {
	b.descriptors = append(b.descriptors, d)
}

// AddLight appends l to the scene's lights.
func (b *Builder) AddLight(l light.LightStyle) {
	b.scene.Lights = append(b.scene.Lights, l)
}

// Build resolves every descriptor into entities, flattening children depth-first after their parent.
//
// Returns:
//   - *Result: the scene, entities, arena and images
//   - error: config.ErrTooManyLights, ErrUnknownMesh or ErrMeshTypeMismatch
func (b *Builder) Build() (*Result, error) {
	if len(b.scene.Lights) > b.maxLights {
		return nil, fmt.Errorf("%w: %d lights, capacity %d", config.ErrTooManyLights, len(b.scene.Lights), b.maxLights)
	}

	list := entity.NewList()
	for i := range b.descriptors {
		if err := b.flatten(list, &b.descriptors[i], mgl32.Ident4()); err != nil {
			return nil, err
		}
	}

	sc := b.scene
	sc.Lights = append([]light.LightStyle(nil), b.scene.Lights...)
	return &Result{
		Scene:    &sc,
		Entities: list,
		Arena:    b.arena,
		Images:   b.images,
	}, nil
}

func (b *Builder) flatten(list *entity.List, d *EntityDescriptor, parent mgl32.Mat4) error {
	m, ok := b.arena.Get(d.Mesh)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownMesh, d.Mesh)
	}

	state := entity.DefaultRenderState(m)
	if d.State != nil {
		state = *d.State
		if state.MeshType != m.Kind() {
			return fmt.Errorf("%w: state %s, mesh %s", ErrMeshTypeMismatch, state, m.Kind())
		}
	}

	opts := make([]entity.EntityBuilderOption, 0, len(d.Options)+2)
	opts = append(opts, entity.WithParent(parent))
	if layer, ok := b.meshImages[d.Mesh]; ok {
		opts = append(opts, entity.WithTexture(layer))
	}
	opts = append(opts, d.Options...)

	e := entity.NewEntity(d.Mesh, state, opts...)
	list.Push(e)

	world := e.WorldMatrix()
	for i := range d.Children {
		if err := b.flatten(list, &d.Children[i], world); err != nil {
			return err
		}
	}
	return nil
}
