package entity

import (
	"fmt"

	"github.com/Carmen-Shannon/umbra/engine/mesh"
)

// PolygonMode selects how an entity's primitives are rasterized.
type PolygonMode int

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

func (p PolygonMode) String() string {
	switch p {
	case PolygonFill:
		return "fill"
	case PolygonLine:
		return "line"
	case PolygonPoint:
		return "point"
	default:
		return fmt.Sprintf("polygon(%d)", int(p))
	}
}

// RenderState is the pipeline key of an entity. Entities with equal RenderStates share a pipeline.
type RenderState struct {
	Topology    mesh.Topology
	PolygonMode PolygonMode
	MeshType    mesh.Kind
}

// DefaultRenderState is a filled RenderState matching m's topology and kind.
func DefaultRenderState(m mesh.Mesh) RenderState {
	return RenderState{Topology: m.Topology(), PolygonMode: PolygonFill, MeshType: m.Kind()}
}

func (rs RenderState) String() string {
	return fmt.Sprintf("%s/%s/%s", rs.Topology, rs.PolygonMode, rs.MeshType)
}
