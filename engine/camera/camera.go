package camera

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraStyle is the scene camera: a perspective view from Position towards Center.
// Width and Height are the viewport size and only their ratio affects the projection.
type CameraStyle struct {
	Width    uint32
	Height   uint32
	Near     float32
	Far      float32
	Fovy     float32 // vertical field of view in degrees
	Position mgl32.Vec3
	Center   mgl32.Vec3
	Up       mgl32.Vec3
}

// NewCameraStyle creates a CameraStyle with all options applied.
// Defaults are an 800x600 viewport, 45 degree fov, planes at 0.1 and 100, looking from (0, 2, 5) at the origin.
func NewCameraStyle(options ...CameraBuilderOption) CameraStyle {
	c := CameraStyle{
		Width:    800,
		Height:   600,
		Near:     0.1,
		Far:      100,
		Fovy:     45,
		Position: mgl32.Vec3{0, 2, 5},
		Up:       mgl32.Vec3{0, 1, 0},
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// Aspect returns Width / Height, or 1 for a degenerate viewport.
func (c *CameraStyle) Aspect() float32 {
	if c.Width == 0 || c.Height == 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

// View returns the world-to-view matrix.
func (c *CameraStyle) View() mgl32.Mat4 {
	return common.LookAt(c.Position, c.Center, c.Up)
}

// Projection returns the view-to-clip matrix with WebGPU depth range.
func (c *CameraStyle) Projection() mgl32.Mat4 {
	return common.Perspective(mgl32.DegToRad(c.Fovy), c.Aspect(), c.Near, c.Far)
}

// ViewProjection returns Projection() * View().
func (c *CameraStyle) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}
