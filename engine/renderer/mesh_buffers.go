package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
)

// meshBuffers are the GPU buffers of one arena mesh.
type meshBuffers struct {
	mesh        mesh.Mesh
	vertex      device.Handle
	vertexCount uint32
	index       device.Handle
	indexCount  uint32

	// wire is the generated line-list index buffer, created the first time a
	// wireframe RenderState draws this mesh.
	wire      device.Handle
	wireCount uint32
}

// uploadMesh creates and fills the vertex and index buffers of m.
func uploadMesh(dev device.Device, h mesh.Handle, m mesh.Mesh) (*meshBuffers, error) {
	mb := &meshBuffers{mesh: m, vertexCount: uint32(m.VertexCount())}

	data := m.VertexBytes()
	vb, err := dev.CreateBuffer(fmt.Sprintf("mesh%d.vertex", h), uint64(len(data)), device.BufferUsageVertex|device.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("mesh %d vertex buffer: %w", h, err)
	}
	dev.WriteBuffer(vb, 0, data)
	mb.vertex = vb

	if indices := m.Indices(); len(indices) > 0 {
		ib, err := createIndexBuffer(dev, fmt.Sprintf("mesh%d.index", h), indices)
		if err != nil {
			mb.release()
			return nil, fmt.Errorf("mesh %d index buffer: %w", h, err)
		}
		mb.index = ib
		mb.indexCount = uint32(len(indices))
	}
	return mb, nil
}

// ensureWireframe creates the wireframe index buffer on first use.
func (mb *meshBuffers) ensureWireframe(dev device.Device, h mesh.Handle) error {
	if mb.wire != nil {
		return nil
	}
	indices := mesh.Wireframe(mb.mesh)
	if len(indices) == 0 {
		return fmt.Errorf("mesh %d: no wireframe for %s topology", h, mb.mesh.Topology())
	}
	ib, err := createIndexBuffer(dev, fmt.Sprintf("mesh%d.wireframe", h), indices)
	if err != nil {
		return fmt.Errorf("mesh %d wireframe buffer: %w", h, err)
	}
	mb.wire = ib
	mb.wireCount = uint32(len(indices))
	return nil
}

func createIndexBuffer(dev device.Device, label string, indices []uint32) (device.Handle, error) {
	data := mesh.IndexBytes(indices)
	ib, err := dev.CreateBuffer(label, uint64(len(data)), device.BufferUsageIndex|device.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	dev.WriteBuffer(ib, 0, data)
	return ib, nil
}

func (mb *meshBuffers) release() {
	for _, h := range []device.Handle{mb.vertex, mb.index, mb.wire} {
		if h != nil {
			h.Release()
		}
	}
	mb.vertex, mb.index, mb.wire = nil, nil, nil
}
