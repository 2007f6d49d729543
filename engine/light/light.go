package light

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Model selects how a light contributes to shading.
type Model uint32

const (
	// ModelOff contributes nothing but still occupies a slot.
	ModelOff Model = iota

	// ModelDirectional shines from Position towards the origin, with diffuse, specular and shadows.
	ModelDirectional

	// ModelHemisphere blends the Hemisphere sky and ground colors by the surface normal's up component.
	ModelHemisphere

	// ModelAmbient adds Color * Ambient uniformly.
	ModelAmbient
)

func (m Model) String() string {
	switch m {
	case ModelOff:
		return "off"
	case ModelDirectional:
		return "directional"
	case ModelHemisphere:
		return "hemisphere"
	case ModelAmbient:
		return "ambient"
	default:
		return fmt.Sprintf("model(%d)", uint32(m))
	}
}

// ShadowAlgorithm selects how the shadow map is filtered.
type ShadowAlgorithm uint32

const (
	ShadowHard ShadowAlgorithm = iota
	// ShadowPCF averages a 3x3 neighbourhood of comparisons.
	ShadowPCF
)

// ShadowStyle makes a light cast shadows. The light's camera is a perspective frustum
// from Position towards Center.
type ShadowStyle struct {
	// Fov is the vertical field of view in degrees.
	Fov    float32
	Near   float32
	Far    float32
	Center mgl32.Vec3
	Up     mgl32.Vec3
	// Resolution is the square size in texels this light renders into. Zero uses the scene's shadow map size.
	Resolution uint32
	Algorithm  ShadowAlgorithm
	// Opacity is how dark full shadow is, from 0 (no shadow) to 1.
	Opacity float32
}

// HemisphereStyle holds the two colors a hemisphere light blends between.
type HemisphereStyle struct {
	Sky    mgl32.Vec3
	Ground mgl32.Vec3
}

// LightStyle is the complete description of one light. The updater may change any field between frames.
type LightStyle struct {
	Model    Model
	Color    mgl32.Vec3
	Ambient  float32
	Position mgl32.Vec3

	// Rotation is applied to Position and to the shadow camera, as Euler angles in radians (X, then Y, then Z).
	Rotation   mgl32.Vec3
	Brightness float32
	Shadow     *ShadowStyle
	Hemisphere *HemisphereStyle
}

// NewLightStyle creates a LightStyle of the given model with all options applied.
// Defaults are a white light of brightness 1 and ambient 0.1 at (0, 10, 0) with no shadow.
func NewLightStyle(model Model, opts ...LightBuilderOption) LightStyle {
	l := LightStyle{
		Model:      model,
		Color:      mgl32.Vec3{1, 1, 1},
		Ambient:    0.1,
		Position:   mgl32.Vec3{0, 10, 0},
		Brightness: 1,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// UseShadow reports whether this light is baked into the shadow map.
func (l *LightStyle) UseShadow() bool {
	return l.Shadow != nil && l.Model != ModelOff
}

// WorldPosition returns Position with Rotation applied.
func (l *LightStyle) WorldPosition() mgl32.Vec3 {
	return rotation(l.Rotation).Mul4x1(l.Position.Vec4(1)).Vec3()
}
