package light

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// GPULightSize is the byte size of one GPULight record, which is also its array stride.
	GPULightSize = 160

	// GPUShadowCameraSize is the byte size of GPUShadowCamera, before dynamic offset alignment.
	GPUShadowCameraSize = 64
)

// GPULight is the GPU-aligned representation of one light.
// Matches the WGSL Light struct in assets/builtin/light.wgsl.
// Size: 160 bytes (array stride, 16-byte aligned).
type GPULight struct {
	ShadowProj      mgl32.Mat4 // offset   0: light view-projection, zero without a shadow style
	Color           [3]float32 // offset  64
	Brightness      float32    // offset  76
	Position        [3]float32 // offset  80: rotated position
	Ambient         float32    // offset  92
	SkyColor        [3]float32 // offset  96: hemisphere sky color
	Model           uint32     // offset 108: Model tag
	GroundColor     [3]float32 // offset 112: hemisphere ground color
	UseShadow       uint32     // offset 124: 1 when baked into the shadow map
	ShadowAlgorithm uint32     // offset 128
	ShadowOpacity   float32    // offset 132
	ShadowTexel     float32    // offset 136: 1 / shadow map size, the PCF tap spacing in uv
	ShadowScale     float32    // offset 140: resolution / shadow map size, the used fraction of the layer
	ShadowLayer     uint32     // offset 144: shadow map array layer
	_pad0           uint32     // offset 148
	_pad1           uint32     // offset 152
	_pad2           uint32     // offset 156
}

// Pack builds the GPU record for l occupying slot index of a shadow map of mapSize texels.
func Pack(l *LightStyle, index int, mapSize uint32) GPULight {
	pos := l.WorldPosition()
	g := GPULight{
		ShadowProj:  ShadowProjection(l),
		Color:       l.Color,
		Brightness:  l.Brightness,
		Position:    pos,
		Ambient:     l.Ambient,
		Model:       uint32(l.Model),
		ShadowLayer: uint32(index),
	}
	if l.Hemisphere != nil {
		g.SkyColor = l.Hemisphere.Sky
		g.GroundColor = l.Hemisphere.Ground
	}
	if l.UseShadow() && mapSize > 0 {
		g.UseShadow = 1
		g.ShadowAlgorithm = uint32(l.Shadow.Algorithm)
		g.ShadowOpacity = l.Shadow.Opacity
		g.ShadowTexel = 1 / float32(mapSize)
		g.ShadowScale = float32(ShadowResolution(l, mapSize)) / float32(mapSize)
	}
	return g
}

// Size returns the size of the GPULight struct in bytes.
func (g *GPULight) Size() int {
	return GPULightSize
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 160-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.MarshalTo(buf)
	return buf
}

// MarshalTo writes the record into buf[:GPULightSize].
func (g *GPULight) MarshalTo(buf []byte) {
	common.PutMat4(buf, 0, g.ShadowProj)
	common.PutFloats(buf, 64, g.Color[0], g.Color[1], g.Color[2], g.Brightness)
	common.PutFloats(buf, 80, g.Position[0], g.Position[1], g.Position[2], g.Ambient)
	common.PutFloats(buf, 96, g.SkyColor[:]...)
	common.PutUint32(buf, 108, g.Model)
	common.PutFloats(buf, 112, g.GroundColor[:]...)
	common.PutUint32(buf, 124, g.UseShadow)
	common.PutUint32(buf, 128, g.ShadowAlgorithm)
	common.PutFloats(buf, 132, g.ShadowOpacity, g.ShadowTexel, g.ShadowScale)
	common.PutUint32(buf, 144, g.ShadowLayer)
	common.PutUint32(buf, 148, 0)
	common.PutUint32(buf, 152, 0)
	common.PutUint32(buf, 156, 0)
}

// GPUShadowCamera is the uniform bound while baking one light's shadow layer.
// Matches the WGSL ShadowCamera struct in assets/shadow.wgsl.
// Size: 64 bytes.
type GPUShadowCamera struct {
	ViewProj mgl32.Mat4 // offset 0
}

// Marshal serializes the GPUShadowCamera struct into a byte buffer suitable for GPU upload.
func (g *GPUShadowCamera) Marshal() []byte {
	buf := make([]byte, GPUShadowCameraSize)
	common.PutMat4(buf, 0, g.ViewProj)
	return buf
}
