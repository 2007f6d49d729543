// Package devicetest provides a recording device.Device for tests that need a GPU backend
// without a GPU. Every resource creation is counted and every encoding call is logged in order.
package devicetest

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
)

// Op is the kind of a recorded encoding call.
type Op string

const (
	OpBeginFrame      Op = "begin_frame"
	OpBeginShadowPass Op = "begin_shadow_pass"
	OpBeginColorPass  Op = "begin_color_pass"
	OpSetPipeline     Op = "set_pipeline"
	OpSetBindGroup    Op = "set_bind_group"
	OpSetVertexBuffer Op = "set_vertex_buffer"
	OpSetIndexBuffer  Op = "set_index_buffer"
	OpDraw            Op = "draw"
	OpDrawIndexed     Op = "draw_indexed"
	OpEndPass         Op = "end_pass"
	OpSubmit          Op = "submit"
	OpPresent         Op = "present"
	OpAbandonFrame    Op = "abandon_frame"
)

// Command is one recorded encoding call. Fields not relevant to Op are zero.
type Command struct {
	Op      Op
	Pass    device.Pass
	Handle  *Handle
	Layer   uint32
	Size    uint32
	Count   uint32
	Slot    uint32
	Group   device.BindGroup
	Offsets []uint32
	Clear   [4]float64
}

// Handle is the fake GPU object handed out by Recorder.
type Handle struct {
	Kind     string
	Label    string
	ID       int
	Size     uint64
	Usage    device.BufferUsage
	Data     []byte
	Pipeline *device.PipelineDescriptor
	Released bool
}

// Release marks the handle released.
func (h *Handle) Release() {
	h.Released = true
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s#%d(%s)", h.Kind, h.ID, h.Label)
}

// Recorder is a device.Device that records instead of rendering.
// The Fail* fields make the matching call return that error.
type Recorder struct {
	Caps device.Capabilities

	FailShaderModule error
	FailPipeline     error
	FailBuffer       error
	FailShadowMap    error
	FailShadowPass   error
	FailColorPass    error

	ShaderModules []*Handle
	Pipelines     []*Handle
	Buffers       []*Handle
	Commands      []Command

	ShadowMapSize   uint32
	ShadowMapLayers uint32
	TextureArray    *device.TextureArrayDescriptor
	Frame           *device.FrameResources
	BindCount       int
	SurfaceWidth    uint32
	SurfaceHeight   uint32
	Configures      int
	Released        bool

	nextID      int
	surfaceLost bool
	pass        device.Pass
}

var _ device.Device = &Recorder{}

// NewRecorder returns a Recorder reporting storage-buffer support and a 256-byte uniform alignment.
func NewRecorder() *Recorder {
	return &Recorder{
		Caps: device.Capabilities{
			MinUniformBufferOffsetAlignment: 256,
			SupportsStorageBuffers:          true,
			MaxTextureArrayLayers:           256,
		},
	}
}

// LoseSurface makes the next BeginFrame fail with device.ErrSurfaceLost.
func (r *Recorder) LoseSurface() {
	r.surfaceLost = true
}

// Reset clears the command log, keeping resources.
func (r *Recorder) Reset() {
	r.Commands = nil
}

// Ops returns every recorded command with the given op, in order.
func (r *Recorder) Ops(op Op) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Draws counts Draw and DrawIndexed calls encoded inside pass.
func (r *Recorder) Draws(pass device.Pass) int {
	n := 0
	for _, c := range r.Commands {
		if (c.Op == OpDraw || c.Op == OpDrawIndexed) && c.Pass == pass {
			n++
		}
	}
	return n
}

// LiveBuffers returns the buffers that have not been released.
func (r *Recorder) LiveBuffers() []*Handle {
	return slices.DeleteFunc(slices.Clone(r.Buffers), func(h *Handle) bool { return h.Released })
}

// BufferByLabel returns the most recently created buffer with the given label.
func (r *Recorder) BufferByLabel(label string) *Handle {
	for i := len(r.Buffers) - 1; i >= 0; i-- {
		if r.Buffers[i].Label == label {
			return r.Buffers[i]
		}
	}
	return nil
}

func (r *Recorder) handle(kind, label string) *Handle {
	r.nextID++
	return &Handle{Kind: kind, Label: label, ID: r.nextID}
}

func (r *Recorder) record(c Command) {
	c.Pass = r.pass
	r.Commands = append(r.Commands, c)
}

func (r *Recorder) Capabilities() device.Capabilities {
	return r.Caps
}

func (r *Recorder) CreateShaderModule(label, code string) (device.Handle, error) {
	if r.FailShaderModule != nil {
		return nil, r.FailShaderModule
	}
	h := r.handle("shader_module", label)
	h.Data = []byte(code)
	r.ShaderModules = append(r.ShaderModules, h)
	return h, nil
}

func (r *Recorder) CreateRenderPipeline(desc *device.PipelineDescriptor) (device.Handle, error) {
	if r.FailPipeline != nil {
		return nil, r.FailPipeline
	}
	h := r.handle("pipeline", desc.Label)
	d := *desc
	h.Pipeline = &d
	r.Pipelines = append(r.Pipelines, h)
	return h, nil
}

func (r *Recorder) CreateBuffer(label string, size uint64, usage device.BufferUsage) (device.Handle, error) {
	if r.FailBuffer != nil {
		return nil, r.FailBuffer
	}
	h := r.handle("buffer", label)
	h.Size = size
	h.Usage = usage
	h.Data = make([]byte, size)
	r.Buffers = append(r.Buffers, h)
	return h, nil
}

func (r *Recorder) WriteBuffer(buf device.Handle, offset uint64, data []byte) {
	h := buf.(*Handle)
	if end := offset + uint64(len(data)); end > uint64(len(h.Data)) {
		panic(fmt.Sprintf("devicetest: write of %d bytes at %d overflows %s of size %d", len(data), offset, h, len(h.Data)))
	}
	copy(h.Data[offset:], data)
}

func (r *Recorder) CreateShadowMap(size, layers uint32) error {
	if r.FailShadowMap != nil {
		return r.FailShadowMap
	}
	r.ShadowMapSize, r.ShadowMapLayers = size, layers
	return nil
}

func (r *Recorder) CreateTextureArray(desc *device.TextureArrayDescriptor) error {
	r.TextureArray = desc
	return nil
}

func (r *Recorder) BindFrameResources(res *device.FrameResources) error {
	f := *res
	r.Frame = &f
	r.BindCount++
	return nil
}

func (r *Recorder) ConfigureSurface(width, height uint32) error {
	r.SurfaceWidth, r.SurfaceHeight = width, height
	r.Configures++
	return nil
}

func (r *Recorder) BeginFrame() error {
	if r.surfaceLost {
		r.surfaceLost = false
		return device.ErrSurfaceLost
	}
	r.record(Command{Op: OpBeginFrame})
	return nil
}

func (r *Recorder) BeginShadowPass(layer, size uint32) error {
	if r.FailShadowPass != nil {
		return r.FailShadowPass
	}
	r.pass = device.PassShadow
	r.record(Command{Op: OpBeginShadowPass, Layer: layer, Size: size})
	return nil
}

func (r *Recorder) BeginColorPass(clear [4]float64) error {
	if r.FailColorPass != nil {
		return r.FailColorPass
	}
	r.pass = device.PassColor
	r.record(Command{Op: OpBeginColorPass, Clear: clear})
	return nil
}

func (r *Recorder) SetPipeline(p device.Handle) {
	r.record(Command{Op: OpSetPipeline, Handle: p.(*Handle)})
}

func (r *Recorder) SetBindGroup(slot uint32, group device.BindGroup, dynamicOffsets ...uint32) {
	r.record(Command{Op: OpSetBindGroup, Slot: slot, Group: group, Offsets: slices.Clone(dynamicOffsets)})
}

func (r *Recorder) SetVertexBuffer(buf device.Handle) {
	r.record(Command{Op: OpSetVertexBuffer, Handle: buf.(*Handle)})
}

func (r *Recorder) SetIndexBuffer(buf device.Handle) {
	r.record(Command{Op: OpSetIndexBuffer, Handle: buf.(*Handle)})
}

func (r *Recorder) Draw(vertexCount uint32) {
	r.record(Command{Op: OpDraw, Count: vertexCount})
}

func (r *Recorder) DrawIndexed(indexCount uint32) {
	r.record(Command{Op: OpDrawIndexed, Count: indexCount})
}

func (r *Recorder) EndPass() {
	r.record(Command{Op: OpEndPass})
}

func (r *Recorder) Submit() error {
	r.record(Command{Op: OpSubmit})
	return nil
}

func (r *Recorder) Present() {
	r.record(Command{Op: OpPresent})
}

func (r *Recorder) AbandonFrame() {
	r.record(Command{Op: OpAbandonFrame})
}

func (r *Recorder) Release() {
	r.Released = true
}
