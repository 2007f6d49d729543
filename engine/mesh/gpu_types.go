package mesh

import (
	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one vertex shared by both mesh variants.
// Matches the WGSL VertexInput struct in assets/builtin/vertex.wgsl (locations 0-3).
type Vertex struct {
	Position  mgl32.Vec3 // offset  0, location 0
	Normal    mgl32.Vec3 // offset 12, location 1
	Tangent   mgl32.Vec3 // offset 24, location 2
	Bitangent mgl32.Vec3 // offset 36, location 3
}

const (
	// VertexSize is the stride of an untextured vertex.
	VertexSize = 48

	// TexturedVertexSize is the stride of a textured vertex: Vertex followed by a vec2 UV at location 4.
	TexturedVertexSize = 56
)

// Layout returns the vertex buffer layout for a mesh kind. It depends on nothing but k.
func Layout(k Kind) device.VertexLayout {
	attrs := []device.VertexAttribute{
		{Format: device.VertexFormatFloat32x3, Offset: 0, Location: 0},
		{Format: device.VertexFormatFloat32x3, Offset: 12, Location: 1},
		{Format: device.VertexFormatFloat32x3, Offset: 24, Location: 2},
		{Format: device.VertexFormatFloat32x3, Offset: 36, Location: 3},
	}
	if k == KindTextured {
		return device.VertexLayout{
			Stride:     TexturedVertexSize,
			Attributes: append(attrs, device.VertexAttribute{Format: device.VertexFormatFloat32x2, Offset: 48, Location: 4}),
		}
	}
	return device.VertexLayout{Stride: VertexSize, Attributes: attrs}
}

// marshalVertices interleaves vertices (and uvs, when non-nil) into a little-endian buffer.
func marshalVertices(vertices []Vertex, uvs []mgl32.Vec2) []byte {
	stride := VertexSize
	if uvs != nil {
		stride = TexturedVertexSize
	}
	buf := make([]byte, len(vertices)*stride)
	for i, v := range vertices {
		off := i * stride
		off = common.PutFloats(buf, off, v.Position[:]...)
		off = common.PutFloats(buf, off, v.Normal[:]...)
		off = common.PutFloats(buf, off, v.Tangent[:]...)
		off = common.PutFloats(buf, off, v.Bitangent[:]...)
		if uvs != nil {
			common.PutFloats(buf, off, uvs[i][:]...)
		}
	}
	return buf
}

// IndexBytes serializes indices for a uint32 index buffer.
func IndexBytes(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, ix := range indices {
		common.PutUint32(buf, i*4, ix)
	}
	return buf
}
