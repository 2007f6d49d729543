package pipeline

import (
	"github.com/Carmen-Shannon/umbra/engine/entity"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
)

// Pipeline is one compiled render pipeline for a RenderState in a pass.
// It is owned by the Cache that built it.
type Pipeline struct {
	// Key is the RenderState this pipeline was built for.
	Key  entity.RenderState
	Pass device.Pass

	// Topology is the primitive topology after polygon-mode emulation.
	Topology device.Topology
	// Source is where draws with this pipeline read their primitives from.
	Source DrawSource

	VertexEntry   string
	FragmentEntry string

	handle device.Handle
}

// Handle returns the backend pipeline object.
func (p *Pipeline) Handle() device.Handle {
	return p.handle
}

// Release frees the backend pipeline. The Cache calls it on Rebuild and Release.
func (p *Pipeline) Release() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
}
