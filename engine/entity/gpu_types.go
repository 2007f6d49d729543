package entity

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUEntitySize is the byte size of GPUEntity, before alignment to the device's dynamic offset alignment.
const GPUEntitySize = 176

// GPUReflection matches the WGSL Reflection struct in assets/builtin/entity.wgsl.
type GPUReflection struct {
	Intensity float32 // offset  0
	Specular  float32 // offset  4
	_pad0     float32 // offset  8
	_pad1     float32 // offset 12
}

// GPUEntity is the per-entity uniform record.
// Matches the WGSL Entity struct in assets/builtin/entity.wgsl.
// Size: 176 bytes.
type GPUEntity struct {
	Transform       mgl32.Mat4    // offset   0: world matrix
	NormalTransform mgl32.Mat4    // offset  64: inverse-transpose of the world matrix, padded to 4x4
	Color           [4]float32    // offset 128
	TextureIndex    int32         // offset 144: -1 when unset
	NormalIndex     int32         // offset 148: -1 when unset
	ReceiveShadow   uint32        // offset 152
	_pad0           uint32        // offset 156
	Reflection      GPUReflection // offset 160
}

// NewGPUEntity packs the current state of e.
func NewGPUEntity(e *Entity) GPUEntity {
	world := e.WorldMatrix()
	g := GPUEntity{
		Transform:       world,
		NormalTransform: common.NormalMatrix(world),
		Color:           e.Color,
		TextureIndex:    int32(e.TextureIndex),
		NormalIndex:     int32(e.NormalMapIndex),
		Reflection:      GPUReflection{Intensity: e.Reflection.Intensity, Specular: e.Reflection.Specular},
	}
	if e.ReceiveShadow {
		g.ReceiveShadow = 1
	}
	return g
}

// Size returns the size of the GPUEntity struct in bytes.
func (g *GPUEntity) Size() int {
	return GPUEntitySize
}

// Marshal serializes the GPUEntity struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 176-byte buffer ready for GPU upload.
func (g *GPUEntity) Marshal() []byte {
	buf := make([]byte, GPUEntitySize)
	common.PutMat4(buf, 0, g.Transform)
	common.PutMat4(buf, 64, g.NormalTransform)
	common.PutFloats(buf, 128, g.Color[:]...)
	common.PutInt32(buf, 144, g.TextureIndex)
	common.PutInt32(buf, 148, g.NormalIndex)
	common.PutUint32(buf, 152, g.ReceiveShadow)
	common.PutFloats(buf, 160, g.Reflection.Intensity, g.Reflection.Specular)
	return buf
}
