package engine

import (
	"github.com/Carmen-Shannon/oxy-bind/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables periodic stats logging.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler, for example to change its interval.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the logic tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.tickRate = tickDuration(fps)
	}
}

// WithWindow sets a configured window for the engine to use rather than creating a default one.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice sets the device the engine renders with. The device must present to the
// engine's window.
//
// Parameters:
//   - d: the wgpu device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d device.WGPUDevice) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithDeviceOptions sets the options used when the engine creates its own device.
//
// Parameters:
//   - options: present mode, MSAA and limit options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDeviceOptions(options ...device.WGPUDeviceOption) EngineBuilderOption {
	return func(e *engine) {
		e.deviceOpts = append(e.deviceOpts, options...)
	}
}

// WithRenderer sets the renderer the engine drives. It must draw on the engine's device.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}
