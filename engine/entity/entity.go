package entity

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

var nextID atomic.Uint64

// NoTexture marks an unset texture or normal-map index.
const NoTexture = -1

// Transform is a decomposed model transform. The model matrix is T * R * S.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform has no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns the model matrix of t.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Reflection controls the specular highlight of an entity.
type Reflection struct {
	Intensity float32
	Specular  float32
}

// Entity is one drawable instance. The updater mutates its fields in place between frames.
type Entity struct {
	id uint64

	Mesh      mesh.Handle
	Transform Transform
	// Parent, when set, is pre-multiplied into Transform. The scene builder uses it for child descriptors.
	Parent mgl32.Mat4
	Color  [4]float32
	// TextureIndex and NormalMapIndex select layers of the bound texture array, or NoTexture.
	TextureIndex   int
	NormalMapIndex int
	Reflection     Reflection
	ReceiveShadow  bool
	CastShadow     bool
	State          RenderState
}

// NewEntity creates an Entity drawing the mesh behind h in state, with all options applied.
// Unless overridden it is white, untextured, casts and receives shadows, and has an identity transform.
func NewEntity(h mesh.Handle, state RenderState, options ...EntityBuilderOption) *Entity {
	e := &Entity{
		id:             nextID.Add(1),
		Mesh:           h,
		Transform:      IdentityTransform(),
		Parent:         mgl32.Ident4(),
		Color:          [4]float32{1, 1, 1, 1},
		TextureIndex:   NoTexture,
		NormalMapIndex: NoTexture,
		Reflection:     Reflection{Intensity: 0.5, Specular: 32},
		ReceiveShadow:  true,
		CastShadow:     true,
		State:          state,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// ID returns the process-unique id assigned at construction.
func (e *Entity) ID() uint64 {
	return e.id
}

// WorldMatrix returns Parent * Transform.Matrix().
func (e *Entity) WorldMatrix() mgl32.Mat4 {
	return e.Parent.Mul4(e.Transform.Matrix())
}
