package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/umbra/common"
	"github.com/Carmen-Shannon/umbra/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/umbra/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	colorDepthFormat  = wgpu.TextureFormatDepth24Plus
	shadowDepthFormat = wgpu.TextureFormatDepth32Float
	textureFormat     = wgpu.TextureFormatRGBA8UnormSrgb
)

// WGPUDevice is the cogentcore/webgpu implementation of device.Device.
//
// It owns the instance, adapter, surface, device and queue, the size-dependent color targets,
// the shadow map and texture array, and one BindGroupProvider per fixed bind group slot.
// All methods must be called from the thread that created it.
type WGPUDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue
	caps     device.Capabilities

	presentMode          PresentMode
	msaa                 MSAASampleCount
	forceFallbackAdapter bool

	surfaceFormat wgpu.TextureFormat
	width, height uint32

	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	shadowTexture *wgpu.Texture
	shadowArray   *wgpu.TextureView
	shadowLayers  []*wgpu.TextureView
	shadowSampler *wgpu.Sampler

	texture        *wgpu.Texture
	textureView    *wgpu.TextureView
	textureSampler *wgpu.Sampler

	groups        map[device.BindGroup]bind_group_provider.BindGroupProvider
	lightsStorage bool
	colorLayout   *wgpu.PipelineLayout
	shadowLayout  *wgpu.PipelineLayout

	// frame state, valid between BeginFrame and Present
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ device.Device = &WGPUDevice{}

// NewWGPUDevice creates the instance and surface from desc, requests an adapter compatible with
// the surface and a device from it, and configures the surface at width x height.
//
// Parameters:
//   - desc: the platform surface descriptor, usually from the window
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//   - opts: backend options
//
// Returns:
//   - *WGPUDevice: the device
//   - error: device.ErrNoAdapter or device.ErrDeviceRequest wrapping the cause, or a surface error
func NewWGPUDevice(desc *wgpu.SurfaceDescriptor, width, height uint32, opts ...WGPUDeviceOption) (*WGPUDevice, error) {
	runtime.LockOSThread()
	d := &WGPUDevice{
		mu:          &sync.Mutex{},
		presentMode: PresentModeVSync,
		msaa:        MSAA4x,
		groups: map[device.BindGroup]bind_group_provider.BindGroupProvider{
			device.BindGroupScene:        bind_group_provider.NewBindGroupProvider("scene"),
			device.BindGroupShadowCamera: bind_group_provider.NewBindGroupProvider("shadow_camera"),
			device.BindGroupEntity:       bind_group_provider.NewBindGroupProvider("entity"),
		},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(desc)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: %v", device.ErrNoAdapter, err)
	}
	d.adapter = a

	supported := a.GetLimits().Limits
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4
	limits.MaxTextureArrayLayers = supported.MaxTextureArrayLayers
	limits.MaxStorageBuffersPerShaderStage = supported.MaxStorageBuffersPerShaderStage

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: %v", device.ErrDeviceRequest, err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.caps = device.Capabilities{
		MinUniformBufferOffsetAlignment: supported.MinUniformBufferOffsetAlignment,
		SupportsStorageBuffers:          supported.MaxStorageBuffersPerShaderStage > 0,
		MaxTextureArrayLayers:           supported.MaxTextureArrayLayers,
	}

	if err := d.ConfigureSurface(width, height); err != nil {
		d.Release()
		return nil, err
	}
	common.Logger().Info("gpu device ready",
		"width", width, "height", height, "msaa", uint32(d.msaa),
		"storageBuffers", d.caps.SupportsStorageBuffers, "fallback", d.forceFallbackAdapter)
	return d, nil
}

func (d *WGPUDevice) Capabilities() device.Capabilities {
	return d.caps
}

func (d *WGPUDevice) CreateShaderModule(label, code string) (device.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (d *WGPUDevice) CreateRenderPipeline(desc *device.PipelineDescriptor) (device.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, ok := desc.Module.(*wgpu.ShaderModule)
	if !ok {
		return nil, fmt.Errorf("%s: module is not a wgpu shader module", desc.Label)
	}
	topology, err := primitiveTopology(desc.Topology)
	if err != nil {
		return nil, err
	}

	rp := &wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout(desc.Layout)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(desc.CullMode),
		},
	}

	switch desc.Pass {
	case device.PassColor:
		if d.colorLayout == nil {
			return nil, errors.New("color pipeline layout not ready: BindFrameResources has not been called")
		}
		rp.Layout = d.colorLayout
		rp.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format: d.surfaceFormat,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		}
		rp.Multisample = wgpu.MultisampleState{
			Count: common.Coalesce(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		}
		rp.DepthStencil = depthState(colorDepthFormat, 0, 0)
	case device.PassShadow:
		if d.shadowLayout == nil {
			return nil, errors.New("shadow pipeline layout not ready: BindFrameResources has not been called")
		}
		rp.Layout = d.shadowLayout
		rp.Multisample = wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
		// depth bias is only valid for triangle topologies
		bias, slope := desc.DepthBias, desc.DepthBiasSlopeScale
		if topology != wgpu.PrimitiveTopologyTriangleList {
			bias, slope = 0, 0
		}
		rp.DepthStencil = depthState(shadowDepthFormat, bias, slope)
	default:
		return nil, fmt.Errorf("%s: unknown pass %d", desc.Label, desc.Pass)
	}

	p, err := d.device.CreateRenderPipeline(rp)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *WGPUDevice) CreateBuffer(label string, size uint64, usage device.BufferUsage) (device.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *WGPUDevice) WriteBuffer(buf device.Handle, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := buf.(*wgpu.Buffer)
	if !ok || len(data) == 0 {
		return
	}
	d.queue.WriteBuffer(b, offset, data)
}

func (d *WGPUDevice) CreateShadowMap(size, layers uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseShadowMap()
	layers = max(layers, 1)

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Shadow Map",
		Size: wgpu.Extent3D{
			Width:              size,
			Height:             size,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        shadowDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("failed to create shadow map: %w", err)
	}
	d.shadowTexture = tex

	d.shadowArray, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Shadow Map Array",
		Format:          shadowDepthFormat,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		d.releaseShadowMap()
		return fmt.Errorf("failed to create shadow map view: %w", err)
	}

	d.shadowLayers = make([]*wgpu.TextureView, layers)
	for i := range d.shadowLayers {
		d.shadowLayers[i], err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Shadow Map Layer %d", i),
			Format:          shadowDepthFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			d.releaseShadowMap()
			return fmt.Errorf("failed to create shadow map layer %d: %w", i, err)
		}
	}

	if d.shadowSampler == nil {
		d.shadowSampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         "Shadow Comparison Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			Compare:       wgpu.CompareFunctionLess,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to create comparison sampler: %w", err)
		}
	}
	return nil
}

func (d *WGPUDevice) CreateTextureArray(desc *device.TextureArrayDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(desc.Layers) == 0 {
		return errors.New("texture array needs at least one layer")
	}
	layers := uint32(len(desc.Layers))

	if d.textureView != nil {
		d.textureView.Release()
		d.textureView = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Texture Array",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Size,
			Height:             desc.Size,
			DepthOrArrayLayers: layers,
		},
		Format:        textureFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	d.texture = tex

	for i, layer := range desc.Layers {
		if layer.Width != desc.Size || layer.Height != desc.Size {
			return fmt.Errorf("texture layer %d is %dx%d, expected %dx%d", i, layer.Width, layer.Height, desc.Size, desc.Size)
		}
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(i)},
				Aspect:   wgpu.TextureAspectAll,
			},
			layer.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  layer.BytesPerRow(),
				RowsPerImage: layer.Height,
			},
			&wgpu.Extent3D{
				Width:              layer.Width,
				Height:             layer.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	d.textureView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Texture Array View",
		Format:          textureFormat,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return err
	}

	if d.textureSampler == nil {
		d.textureSampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         "Texture Sampler",
			AddressModeU:  wgpu.AddressModeRepeat,
			AddressModeV:  wgpu.AddressModeRepeat,
			AddressModeW:  wgpu.AddressModeRepeat,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeLinear,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// BindFrameResources creates the fixed bind group layouts and pipeline layouts on first use and
// (re)creates all three bind groups from res and the current textures.
func (d *WGPUDevice) BindFrameResources(res *device.FrameResources) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shadowArray == nil || d.textureView == nil {
		return errors.New("shadow map and texture array must exist before binding frame resources")
	}
	if d.colorLayout != nil && res.LightsStorage != d.lightsStorage {
		return errors.New("light buffer binding type cannot change after pipelines are laid out")
	}
	if err := d.initLayouts(res); err != nil {
		return err
	}

	scene, _ := res.Scene.(*wgpu.Buffer)
	lights, _ := res.Lights.(*wgpu.Buffer)
	cameras, _ := res.ShadowCameras.(*wgpu.Buffer)
	entities, _ := res.Entities.(*wgpu.Buffer)
	if scene == nil || lights == nil || cameras == nil || entities == nil {
		return errors.New("frame resources must be wgpu buffers")
	}

	if err := d.groups[device.BindGroupScene].Bind(d.device, []wgpu.BindGroupEntry{
		bind_group_provider.BufferEntry(0, scene, 0),
		bind_group_provider.BufferEntry(1, lights, res.LightsSize),
		bind_group_provider.TextureEntry(2, d.shadowArray),
		bind_group_provider.SamplerEntry(3, d.shadowSampler),
		bind_group_provider.TextureEntry(4, d.textureView),
		bind_group_provider.SamplerEntry(5, d.textureSampler),
	}); err != nil {
		return err
	}
	if err := d.groups[device.BindGroupShadowCamera].Bind(d.device, []wgpu.BindGroupEntry{
		bind_group_provider.BufferEntry(0, cameras, res.ShadowCameraSize),
	}); err != nil {
		return err
	}
	return d.groups[device.BindGroupEntity].Bind(d.device, []wgpu.BindGroupEntry{
		bind_group_provider.BufferEntry(0, entities, res.EntityBindingSize),
	})
}

func (d *WGPUDevice) initLayouts(res *device.FrameResources) error {
	if d.colorLayout != nil {
		return nil
	}
	d.lightsStorage = res.LightsStorage

	lightsType := wgpu.BufferBindingTypeUniform
	if res.LightsStorage {
		lightsType = wgpu.BufferBindingTypeReadOnlyStorage
	}
	vertexFragment := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

	if err := d.groups[device.BindGroupScene].Init(d.device, wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: vertexFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: lightsType},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    5,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	}); err != nil {
		return err
	}
	if err := d.groups[device.BindGroupShadowCamera].Init(d.device, wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   res.ShadowCameraSize,
			},
		}},
	}); err != nil {
		return err
	}
	if err := d.groups[device.BindGroupEntity].Init(d.device, wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: vertexFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   res.EntityBindingSize,
			},
		}},
	}); err != nil {
		return err
	}

	color, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "color",
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			d.groups[device.BindGroupScene].Layout(),
			d.groups[device.BindGroupEntity].Layout(),
		},
	})
	if err != nil {
		return err
	}
	shadow, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "shadow",
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			d.groups[device.BindGroupShadowCamera].Layout(),
			d.groups[device.BindGroupEntity].Layout(),
		},
	})
	if err != nil {
		color.Release()
		return err
	}
	d.colorLayout, d.shadowLayout = color, shadow
	return nil
}

// ConfigureSurface is a wrapper for boilerplate logic required when calling Configure on a surface,
// and recreates the MSAA and depth targets at the new size.
func (d *WGPUDevice) ConfigureSurface(width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("cannot configure a %dx%d surface", width, height)
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no supported formats")
	}
	d.surfaceFormat = capabilities.Formats[0]

	presentMode := wgpu.PresentModeFifo
	if d.presentMode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.width, d.height = width, height

	d.releaseTargets()
	count := uint32(max(d.msaa, MSAAOff))
	if count > 1 {
		tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        d.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create msaa texture: %w", err)
		}
		d.msaaTexture = tex
		if d.msaaView, err = tex.CreateView(nil); err != nil {
			return fmt.Errorf("create msaa view: %w", err)
		}
	}

	// sample count of the depth target must match the color attachment
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        colorDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	d.depthTexture = tex
	if d.depthView, err = tex.CreateView(nil); err != nil {
		return fmt.Errorf("create depth view: %w", err)
	}
	return nil
}

func (d *WGPUDevice) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrSurfaceLost, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("%w: %v", device.ErrSurfaceLost, err)
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	d.frameEncoder = encoder
	d.frameSurface = surfaceTexture
	d.frameView = view
	return nil
}

func (d *WGPUDevice) BeginShadowPass(layer, size uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder == nil {
		return errors.New("shadow pass outside of a frame")
	}
	if d.framePass != nil {
		return errors.New("previous pass not ended")
	}
	if int(layer) >= len(d.shadowLayers) {
		return fmt.Errorf("shadow layer %d out of range [0, %d)", layer, len(d.shadowLayers))
	}

	d.framePass = d.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fmt.Sprintf("shadow layer %d", layer),
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.shadowLayers[layer],
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	d.framePass.SetViewport(0, 0, float32(size), float32(size), 0, 1)
	return nil
}

func (d *WGPUDevice) BeginColorPass(clear [4]float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder == nil {
		return errors.New("color pass outside of a frame")
	}
	if d.framePass != nil {
		return errors.New("previous pass not ended")
	}

	// With MSAA the multisampled texture is drawn and resolved into the swapchain view.
	attachment := wgpu.RenderPassColorAttachment{
		View:       d.frameView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: clear[0], G: clear[1], B: clear[2], A: clear[3]},
	}
	if d.msaaView != nil {
		attachment.View = d.msaaView
		attachment.ResolveTarget = d.frameView
		attachment.StoreOp = wgpu.StoreOpDiscard
	}

	d.framePass = d.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            "color",
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	return nil
}

func (d *WGPUDevice) SetPipeline(p device.Handle) {
	if rp, ok := p.(*wgpu.RenderPipeline); ok && d.framePass != nil {
		d.framePass.SetPipeline(rp)
	}
}

func (d *WGPUDevice) SetBindGroup(slot uint32, group device.BindGroup, dynamicOffsets ...uint32) {
	if d.framePass == nil {
		return
	}
	provider, ok := d.groups[group]
	if !ok || provider.BindGroup() == nil {
		common.Logger().Error("bind group not ready", "slot", slot, "group", group)
		return
	}
	d.framePass.SetBindGroup(slot, provider.BindGroup(), dynamicOffsets)
}

func (d *WGPUDevice) SetVertexBuffer(buf device.Handle) {
	if b, ok := buf.(*wgpu.Buffer); ok && d.framePass != nil {
		d.framePass.SetVertexBuffer(0, b, 0, wgpu.WholeSize)
	}
}

func (d *WGPUDevice) SetIndexBuffer(buf device.Handle) {
	if b, ok := buf.(*wgpu.Buffer); ok && d.framePass != nil {
		d.framePass.SetIndexBuffer(b, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (d *WGPUDevice) Draw(vertexCount uint32) {
	if d.framePass != nil {
		d.framePass.Draw(vertexCount, 1, 0, 0)
	}
}

func (d *WGPUDevice) DrawIndexed(indexCount uint32) {
	if d.framePass != nil {
		d.framePass.DrawIndexed(indexCount, 1, 0, 0, 0)
	}
}

func (d *WGPUDevice) EndPass() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return
	}
	d.framePass.End()
	d.framePass.Release()
	d.framePass = nil
}

func (d *WGPUDevice) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameEncoder == nil {
		return errors.New("submit outside of a frame")
	}
	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.releaseFrame()
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *WGPUDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()
	d.releaseFrame()
}

// AbandonFrame drops the frame in progress without submitting it.
func (d *WGPUDevice) AbandonFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.abandonFrame()
}

func (d *WGPUDevice) abandonFrame() {
	if d.framePass != nil {
		d.framePass.End()
		d.framePass.Release()
		d.framePass = nil
	}
	if d.frameEncoder != nil {
		d.frameEncoder.Release()
		d.frameEncoder = nil
	}
	d.releaseFrame()
}

// Release releases every GPU object owned by the device, the device itself and the instance.
func (d *WGPUDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.abandonFrame()
	d.releaseTargets()
	d.releaseShadowMap()

	for _, p := range d.groups {
		p.Release()
	}
	for _, l := range []*wgpu.PipelineLayout{d.colorLayout, d.shadowLayout} {
		if l != nil {
			l.Release()
		}
	}
	d.colorLayout, d.shadowLayout = nil, nil

	for _, s := range []*wgpu.Sampler{d.shadowSampler, d.textureSampler} {
		if s != nil {
			s.Release()
		}
	}
	d.shadowSampler, d.textureSampler = nil, nil
	if d.textureView != nil {
		d.textureView.Release()
		d.textureView = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *WGPUDevice) releaseFrame() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *WGPUDevice) releaseTargets() {
	if d.msaaView != nil {
		d.msaaView.Release()
		d.msaaView = nil
	}
	if d.msaaTexture != nil {
		d.msaaTexture.Release()
		d.msaaTexture = nil
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depthView = nil
	}
	if d.depthTexture != nil {
		d.depthTexture.Release()
		d.depthTexture = nil
	}
}

func (d *WGPUDevice) releaseShadowMap() {
	for _, v := range d.shadowLayers {
		if v != nil {
			v.Release()
		}
	}
	d.shadowLayers = nil
	if d.shadowArray != nil {
		d.shadowArray.Release()
		d.shadowArray = nil
	}
	if d.shadowTexture != nil {
		d.shadowTexture.Release()
		d.shadowTexture = nil
	}
}

func depthState(format wgpu.TextureFormat, bias int32, slope float32) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   true,
		DepthCompare:        wgpu.CompareFunctionLess,
		DepthBias:           bias,
		DepthBiasSlopeScale: slope,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

func primitiveTopology(t device.Topology) (wgpu.PrimitiveTopology, error) {
	switch t {
	case device.TopologyPointList:
		return wgpu.PrimitiveTopologyPointList, nil
	case device.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList, nil
	case device.TopologyTriangleList:
		return wgpu.PrimitiveTopologyTriangleList, nil
	default:
		return 0, fmt.Errorf("%w: topology %d", device.ErrUnsupportedState, t)
	}
}

func cullMode(c device.CullMode) wgpu.CullMode {
	switch c {
	case device.CullFront:
		return wgpu.CullModeFront
	case device.CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func bufferUsage(u device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	pairs := []struct {
		from device.BufferUsage
		to   wgpu.BufferUsage
	}{
		{device.BufferUsageUniform, wgpu.BufferUsageUniform},
		{device.BufferUsageStorage, wgpu.BufferUsageStorage},
		{device.BufferUsageVertex, wgpu.BufferUsageVertex},
		{device.BufferUsageIndex, wgpu.BufferUsageIndex},
		{device.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
	}
	for _, p := range pairs {
		if u&p.from != 0 {
			out |= p.to
		}
	}
	return out
}

func vertexFormat(f device.VertexFormat) wgpu.VertexFormat {
	if f == device.VertexFormatFloat32x2 {
		return wgpu.VertexFormatFloat32x2
	}
	return wgpu.VertexFormatFloat32x3
}

func vertexBufferLayout(l device.VertexLayout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = wgpu.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         a.Offset,
			ShaderLocation: a.Location,
		}
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: l.Stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
