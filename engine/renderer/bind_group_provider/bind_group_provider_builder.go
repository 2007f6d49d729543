package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout supplies an existing layout, making Init a no-op. The provider takes
// ownership and releases it.
//
// Parameters:
//   - bgl: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for this provider
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.layout = bgl
	}
}

// BufferEntry binds size bytes of buf at binding. A size of 0 binds the whole buffer.
func BufferEntry(binding uint32, buf *wgpu.Buffer, size uint64) wgpu.BindGroupEntry {
	if size == 0 {
		size = wgpu.WholeSize
	}
	return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Offset: 0, Size: size}
}

// TextureEntry binds a texture view at binding.
func TextureEntry(binding uint32, view *wgpu.TextureView) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, TextureView: view}
}

// SamplerEntry binds a sampler at binding.
func SamplerEntry(binding uint32, s *wgpu.Sampler) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, Sampler: s}
}
