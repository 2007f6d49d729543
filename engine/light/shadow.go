package light

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of each shadow map layer.
const ShadowMapResolution = 2048

// DefaultShadowFov is the default vertical field of view, in degrees, of a light's shadow camera.
const DefaultShadowFov float32 = 60.0

// DefaultShadowNear is the default near plane of a light's shadow camera.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of a light's shadow camera.
const DefaultShadowFar float32 = 200.0

// ShadowProjection returns the view-projection of the light's shadow camera:
//
//	perspective(fov, 1, near, far) * lookAt(position, center, up) * rotX * rotY * rotZ
//
// A light without a ShadowStyle gets the zero matrix.
func ShadowProjection(l *LightStyle) mgl32.Mat4 {
	if l.Shadow == nil {
		return mgl32.Mat4{}
	}
	s := l.Shadow
	proj := common.Perspective(mgl32.DegToRad(s.Fov), 1, s.Near, s.Far)
	view := common.LookAt(l.Position, s.Center, s.Up)
	return proj.Mul4(view).Mul4(rotation(l.Rotation))
}

// ShadowResolution returns the size in texels the light renders into, clamped to mapSize.
func ShadowResolution(l *LightStyle, mapSize uint32) uint32 {
	if l.Shadow == nil || l.Shadow.Resolution == 0 || l.Shadow.Resolution > mapSize {
		return mapSize
	}
	return l.Shadow.Resolution
}

func rotation(r mgl32.Vec3) mgl32.Mat4 {
	return common.EulerRotation(r)
}
