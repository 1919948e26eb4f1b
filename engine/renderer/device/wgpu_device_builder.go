package device

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
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// WGPUDeviceOption is a functional option applied to a wgpu device during construction via NewWGPUDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.setPresentMode(mode)
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the main render pass.
// When not specified, the default is MSAA4x.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - WGPUDeviceOption: a function that applies the MSAA option
func WithMSAA(count MSAASampleCount) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system.
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - WGPUDeviceOption: a function that applies the fallback adapter option
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxBindGroups raises the device's bind group limit. The binding engine uses up to
// four groups (material, object, camera, scene); the WebGPU default limit is also four.
//
// Parameters:
//   - n: the number of bind groups to request
//
// Returns:
//   - WGPUDeviceOption: a function that applies the limit option
func WithMaxBindGroups(n uint32) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.maxBindGroups = n
	}
}
