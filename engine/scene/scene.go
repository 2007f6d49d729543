package scene

import (
	"github.com/Carmen-Shannon/umbra/engine/camera"
	"github.com/Carmen-Shannon/umbra/engine/light"
)

// Scene is the per-frame global state: the camera, the lights and the clear color.
// The updater mutates it in place before each frame's uniform upload.
type Scene struct {
	Camera camera.CameraStyle
	Lights []light.LightStyle
	// ShadowMapSize is the side of every shadow-map layer in texels.
	ShadowMapSize uint32
	Background    [4]float64
}

// SetViewport updates the camera's viewport. Zero sizes are ignored.
//
// Parameters:
//   - width: the new framebuffer width
//   - height: the new framebuffer height
//
// Returns:
//   - bool: true if the viewport changed
func (s *Scene) SetViewport(width, height uint32) bool {
	if width == 0 || height == 0 {
		return false
	}
	if s.Camera.Width == width && s.Camera.Height == height {
		return false
	}
	s.Camera.Width = width
	s.Camera.Height = height
	return true
}

// ShadowCasters returns the number of lights that render into the shadow map.
func (s *Scene) ShadowCasters() int {
	n := 0
	for i := range s.Lights {
		if s.Lights[i].UseShadow() {
			n++
		}
	}
	return n
}
