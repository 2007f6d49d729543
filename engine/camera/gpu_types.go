package camera

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUSceneUniformSize is the byte size of GPUSceneUniform.
const GPUSceneUniformSize = 80

// GPUSceneUniform is the GPU-aligned representation of the scene uniform buffer.
// Matches the WGSL Scene struct in assets/builtin/scene.wgsl.
// Size: 80 bytes.
type GPUSceneUniform struct {
	ViewProj   mgl32.Mat4 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Eye        [3]float32 // offset 64: world-space camera position (vec3<f32>)
	LightCount uint32     // offset 76: number of valid records in the light array
}

// NewGPUSceneUniform packs the camera and the current light count.
func NewGPUSceneUniform(c *CameraStyle, lightCount int) GPUSceneUniform {
	return GPUSceneUniform{
		ViewProj:   c.ViewProjection(),
		Eye:        c.Position,
		LightCount: uint32(lightCount),
	}
}

// Size returns the size of the GPUSceneUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUSceneUniform) Size() int {
	return GPUSceneUniformSize
}

// Marshal serializes the GPUSceneUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUSceneUniform) Marshal() []byte {
	buf := make([]byte, GPUSceneUniformSize)
	common.PutMat4(buf, 0, g.ViewProj)
	common.PutFloats(buf, 64, g.Eye[:]...)
	common.PutUint32(buf, 76, g.LightCount)
	return buf
}
