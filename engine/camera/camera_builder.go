package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption configures a CameraStyle in NewCameraStyle.
type CameraBuilderOption func(*CameraStyle)

// WithViewport sets the viewport size the aspect ratio is derived from.
//
// Parameters:
//   - width: the viewport width in pixels
//   - height: the viewport height in pixels
//
// Returns:
//   - CameraBuilderOption: a function that applies the viewport option to a CameraStyle
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *CameraStyle) {
		c.Width = width
		c.Height = height
	}
}

// WithPlanes sets the near and far clipping planes.
func WithPlanes(near, far float32) CameraBuilderOption {
	return func(c *CameraStyle) {
		c.Near = near
		c.Far = far
	}
}

// WithFov sets the vertical field of view in degrees.
func WithFov(degrees float32) CameraBuilderOption {
	return func(c *CameraStyle) {
		c.Fovy = degrees
	}
}

// WithLookAt places the camera at position looking at center with the given up vector.
//
// Parameters:
//   - position: the eye position in world space
//   - center: the point the camera looks at
//   - up: the up direction, typically +Y
//
// Returns:
//   - CameraBuilderOption: a function that applies the look-at option to a CameraStyle
func WithLookAt(position, center, up mgl32.Vec3) CameraBuilderOption {
	return func(c *CameraStyle) {
		c.Position = position
		c.Center = center
		c.Up = up
	}
}
