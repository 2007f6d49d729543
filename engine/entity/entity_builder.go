package entity

import "github.com/go-gl/mathgl/mgl32"

// EntityBuilderOption configures an Entity in NewEntity.
type EntityBuilderOption func(*Entity)

// WithTransform sets the entity's local transform.
func WithTransform(t Transform) EntityBuilderOption {
	return func(e *Entity) {
		e.Transform = t
	}
}

// WithParent sets the matrix the local transform is composed under.
func WithParent(m mgl32.Mat4) EntityBuilderOption {
	return func(e *Entity) {
		e.Parent = m
	}
}

// WithColor sets the RGBA fill color.
func WithColor(c [4]float32) EntityBuilderOption {
	return func(e *Entity) {
		e.Color = c
	}
}

// WithTexture sets the texture-array layer sampled for color.
func WithTexture(index int) EntityBuilderOption {
	return func(e *Entity) {
		e.TextureIndex = index
	}
}

// WithNormalMap sets the texture-array layer sampled for normals.
func WithNormalMap(index int) EntityBuilderOption {
	return func(e *Entity) {
		e.NormalMapIndex = index
	}
}

// WithReflection sets the specular parameters.
func WithReflection(r Reflection) EntityBuilderOption {
	return func(e *Entity) {
		e.Reflection = r
	}
}

// WithShadows sets whether the entity receives shadows and whether it is drawn into shadow maps.
func WithShadows(receive, cast bool) EntityBuilderOption {
	return func(e *Entity) {
		e.ReceiveShadow = receive
		e.CastShadow = cast
	}
}
