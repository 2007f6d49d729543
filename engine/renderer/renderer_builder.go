package renderer

import "github.com/Carmen-Shannon/umbra/engine/renderer/shader"

// RendererBuilderOption is a functional option applied to a Renderer during construction via New.
type RendererBuilderOption func(*Renderer)

// WithLibrary sets the shader library templates are expanded from, replacing the embedded
// library and any shader_dir from the config.
//
// Parameters:
//   - lib: the shader library to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the library option to a Renderer
func WithLibrary(lib *shader.Library) RendererBuilderOption {
	return func(r *Renderer) {
		r.lib = lib
	}
}

// WGPUDeviceOption is a functional option applied to the wgpu backend during NewWGPUDevice.
type WGPUDeviceOption func(*WGPUDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode option to the backend
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *WGPUDevice) {
		d.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the color target.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// It must match the sample count the pipeline cache builds color pipelines with.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff or MSAA4x)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the MSAA option to the backend
func WithMSAA(count MSAASampleCount) WGPUDeviceOption {
	return func(d *WGPUDevice) {
		d.msaa = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the force software renderer option to the backend
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *WGPUDevice) {
		d.forceFallbackAdapter = force
	}
}
