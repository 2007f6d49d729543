package renderer

import "github.com/Carmen-Shannon/umbra/engine/config"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// DeviceOptions translates the backend settings of cfg into WGPUDeviceOptions.
func DeviceOptions(cfg *config.Config) []WGPUDeviceOption {
	mode := PresentModeVSync
	if cfg.PresentMode == config.PresentUncapped {
		mode = PresentModeUncapped
	}
	return []WGPUDeviceOption{
		WithPresentMode(mode),
		WithMSAA(MSAASampleCount(cfg.MSAA)),
		WithForceSoftwareRenderer(cfg.ForceFallbackAdapter),
	}
}
