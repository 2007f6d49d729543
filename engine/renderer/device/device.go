// Package device defines the boundary between the renderer core and a GPU backend.
//
// The core never touches a graphics API directly. It compiles shader modules, builds pipelines,
// writes buffers and encodes passes through Device, and holds what it gets back as opaque Handles.
// The cogentcore/webgpu implementation lives in the renderer package; devicetest provides a
// recording fake for tests.
package device

import (
	"errors"

	"github.com/Carmen-Shannon/umbra/common"
)

var (
	// ErrSurfaceLost reports that the next presentable frame could not be acquired.
	// It is recoverable: reconfigure the surface and try again next frame.
	ErrSurfaceLost = errors.New("surface texture unavailable")

	// ErrUnsupportedState reports a RenderState the backend cannot rasterize.
	ErrUnsupportedState = errors.New("unsupported render state")

	ErrNoAdapter     = errors.New("no compatible GPU adapter")
	ErrDeviceRequest = errors.New("GPU device request failed")
)

// Handle is a backend-owned GPU object.
type Handle interface {
	Release()
}

// Pass identifies which render pass a pipeline targets.
type Pass int

const (
	// PassColor is the main forward pass: vertex and fragment stages, MSAA color target, depth test.
	PassColor Pass = iota

	// PassShadow is the depth-only bake into one layer of the shadow map. It has no fragment stage.
	PassShadow
)

func (p Pass) String() string {
	switch p {
	case PassColor:
		return "color"
	case PassShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// Topology is the primitive topology a pipeline rasterizes.
type Topology int

const (
	TopologyPointList Topology = iota
	TopologyLineList
	TopologyTriangleList
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// BufferUsage is a bit set of the ways a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageCopyDst
)

// BindGroup names one of the bind groups a backend prepares in BindFrameResources.
type BindGroup int

const (
	// BindGroupScene holds scene, lights, shadow map, comparison sampler, texture array and sampler.
	BindGroupScene BindGroup = iota

	// BindGroupShadowCamera holds one light's view-projection, selected with a dynamic offset.
	BindGroupShadowCamera

	// BindGroupEntity holds one entity record, selected with a dynamic offset.
	BindGroupEntity
)

// VertexFormat is the type of one vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
)

// VertexAttribute is one shader location inside an interleaved vertex.
type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

// VertexLayout describes a single interleaved vertex buffer.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// PipelineDescriptor is everything a backend needs to create a render pipeline.
// Bind group layouts are fixed per Pass and owned by the backend.
type PipelineDescriptor struct {
	Label         string
	Pass          Pass
	Module        Handle
	VertexEntry   string
	FragmentEntry string
	Layout        VertexLayout
	Topology      Topology
	CullMode      CullMode

	// SampleCount applies to PassColor only; 0 is treated as 1.
	SampleCount uint32

	// DepthBias and DepthBiasSlopeScale apply to PassShadow only.
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// Capabilities are the device properties the core adapts to. They are read once per device.
type Capabilities struct {
	MinUniformBufferOffsetAlignment uint32
	SupportsStorageBuffers          bool
	MaxTextureArrayLayers           uint32
}

// TextureArrayDescriptor is a set of equally sized RGBA8 layers uploaded as one 2D array texture.
type TextureArrayDescriptor struct {
	Size   uint32
	Layers []common.TextureStagingData
}

// FrameResources are the buffers the backend binds into its fixed bind groups.
type FrameResources struct {
	Scene         Handle
	Lights        Handle
	LightsSize    uint64
	LightsStorage bool

	ShadowCameras     Handle
	ShadowCameraSize  uint64
	Entities          Handle
	EntityBindingSize uint64
}

// Device is the GPU backend surface the renderer core drives.
//
// Resource methods may be called at any time outside a frame. A frame is
// BeginFrame, any number of passes (Begin*Pass ... EndPass), Submit, Present.
// A frame that fails part way is closed with AbandonFrame instead.
type Device interface {
	Capabilities() Capabilities

	CreateShaderModule(label, code string) (Handle, error)
	CreateRenderPipeline(desc *PipelineDescriptor) (Handle, error)
	CreateBuffer(label string, size uint64, usage BufferUsage) (Handle, error)
	WriteBuffer(buf Handle, offset uint64, data []byte)

	// CreateShadowMap allocates a depth texture array of layers slices, each size x size.
	CreateShadowMap(size, layers uint32) error
	CreateTextureArray(desc *TextureArrayDescriptor) error
	BindFrameResources(res *FrameResources) error

	// ConfigureSurface (re)configures the swap chain and recreates size-dependent targets.
	ConfigureSurface(width, height uint32) error

	// BeginFrame acquires the next surface texture and opens a command encoder.
	// It returns ErrSurfaceLost when no texture is available; nothing is encoded in that case.
	BeginFrame() error
	BeginShadowPass(layer, size uint32) error
	BeginColorPass(clear [4]float64) error
	SetPipeline(p Handle)
	SetBindGroup(slot uint32, group BindGroup, dynamicOffsets ...uint32)
	SetVertexBuffer(buf Handle)
	SetIndexBuffer(buf Handle)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount uint32)
	EndPass()
	Submit() error
	Present()

	// AbandonFrame ends any open pass and drops the frame without submitting or presenting it.
	// The next BeginFrame starts clean. It is a no-op outside a frame.
	AbandonFrame()

	Release()
}
