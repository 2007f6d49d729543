package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/mesh"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
)

// DrawSource is what a draw call reads its primitives from.
type DrawSource int

const (
	// DrawMesh uses the mesh's own index buffer, or its vertices in order when it has none.
	DrawMesh DrawSource = iota

	// DrawWireframe uses the line-list index buffer generated from a triangle mesh.
	DrawWireframe

	// DrawVertices ignores any index buffer and draws every vertex once.
	DrawVertices
)

// Primitive resolves the primitive topology the GPU rasterizes for rs and where the draw reads from.
// WebGPU has no polygon-mode state, so line mode on triangles becomes a line list over generated
// edges and point mode becomes a point list over every vertex.
//
// Returns:
//   - device.Topology: the pipeline primitive topology
//   - DrawSource: the buffer a draw of this state consumes
//   - error: device.ErrUnsupportedState for point topology in line mode, or an unknown enum value
func Primitive(rs entity.RenderState) (device.Topology, DrawSource, error) {
	switch rs.PolygonMode {
	case entity.PolygonFill:
		switch rs.Topology {
		case mesh.TopologyTriangle:
			return device.TopologyTriangleList, DrawMesh, nil
		case mesh.TopologyLine:
			return device.TopologyLineList, DrawMesh, nil
		case mesh.TopologyPoint:
			return device.TopologyPointList, DrawMesh, nil
		}
	case entity.PolygonLine:
		switch rs.Topology {
		case mesh.TopologyTriangle:
			return device.TopologyLineList, DrawWireframe, nil
		case mesh.TopologyLine:
			return device.TopologyLineList, DrawMesh, nil
		case mesh.TopologyPoint:
			return 0, 0, fmt.Errorf("%w: %s", device.ErrUnsupportedState, rs)
		}
	case entity.PolygonPoint:
		switch rs.Topology {
		case mesh.TopologyTriangle, mesh.TopologyLine, mesh.TopologyPoint:
			return device.TopologyPointList, DrawVertices, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", device.ErrUnsupportedState, rs)
}
