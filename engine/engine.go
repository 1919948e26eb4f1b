package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bind/engine/window"
)

// maxTicksPerFrame bounds the fixed-step catch-up after a long frame.
const maxTicksPerFrame = 5

// Frame collects the camera input and draw items of one rendered frame.
type Frame struct {
	// DeltaTime is the time since the previous frame in seconds.
	DeltaTime float32
	// Time is the time since the engine started in seconds.
	Time   float32
	Width  int
	Height int
	// Input is written by the render callback and passed to BeginFrame.
	Input renderer.FrameInput

	items []renderer.DrawItem
}

// Draw queues an item for this frame. Items are drawn in render queue order, and in
// submission order within a queue.
func (f *Frame) Draw(item renderer.DrawItem) {
	f.items = append(f.items, item)
}

// Aspect returns the framebuffer aspect ratio, or 1 for an empty framebuffer.
func (f *Frame) Aspect() float32 {
	if f.Width <= 0 || f.Height <= 0 {
		return 1
	}
	return float32(f.Width) / float32(f.Height)
}

// engine implements the Engine interface.
type engine struct {
	quitOnce sync.Once

	window     window.Window
	device     device.WGPUDevice
	renderer   renderer.Renderer
	deviceOpts []device.WGPUDeviceOption

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickRate         time.Duration
	tickAccumulator  time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(frame *Frame)
	renderFrameLimit time.Duration

	start      time.Time
	lastRender time.Time
}

// Engine ties a window, a wgpu device and a renderer into a single-threaded frame loop.
// Logic ticks run at a fixed rate on the same thread as rendering, so callbacks may touch
// materials and the renderer without locking.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Renderer returns the frame driver draws are submitted to.
	Renderer() renderer.Renderer

	// EnableProfiler enables periodic stats logging.
	EnableProfiler()

	// DisableProfiler disables periodic stats logging.
	DisableProfiler()

	// SetTickRate sets the logic tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each logic tick.
	//
	// Parameters:
	//   - callback: function receiving the fixed tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function that fills each frame's camera input and draw items.
	//
	// Parameters:
	//   - callback: function receiving the frame to fill
	SetRenderCallback(callback func(frame *Frame))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	SetRenderFrameLimit(fps float64)

	// Run runs the frame loop until the window closes, then releases the renderer, device and window.
	Run()

	// Quit stops the frame loop. Safe to call multiple times.
	Quit()
}

// NewEngine creates an engine. Missing collaborators are created in order: the window, a wgpu
// device presenting to it, then a renderer on that device.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		profiler: profiler.NewProfiler(),
		tickRate: time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow()
	}
	if e.device == nil {
		e.device = device.NewWGPUDevice(e.window.SurfaceDescriptor(), e.deviceOpts...)
	}
	e.device.ConfigureSurface(e.window.Width(), e.window.Height())
	if e.renderer == nil {
		e.renderer = renderer.NewRenderer(e.device)
	}

	e.window.SetResizeCallback(func(width, height int) {
		if width > 0 && height > 0 {
			e.device.ConfigureSurface(width, height)
		}
	})
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	e.tickRate = tickDuration(fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(frame *Frame)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameLimit(fps)
}

func (e *engine) Run() {
	e.start = time.Now()
	e.lastRender = e.start
	e.window.SetUpdateCallback(e.step)
	e.window.ProcessMessages()

	e.renderer.Release()
	e.device.Release()
	if err := e.window.Close(); err != nil {
		common.Logger().Debug("engine: window close", "error", err)
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(e.window.RequestClose)
}

// step runs one loop iteration: due logic ticks, then one rendered frame.
func (e *engine) step() {
	now := time.Now()
	dt := now.Sub(e.lastRender)
	e.lastRender = now

	e.advance(dt)

	frame := &Frame{
		DeltaTime: float32(dt.Seconds()),
		Time:      float32(now.Sub(e.start).Seconds()),
		Width:     e.window.Width(),
		Height:    e.window.Height(),
	}
	frame.Input.Time = frame.Time
	if e.renderCallback != nil {
		e.renderCallback(frame)
	}
	if err := renderFrame(e.renderer, frame); err != nil {
		common.Logger().Warn("engine: frame dropped", "error", err)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(e.renderer.Stats())
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// advance runs the logic ticks that fall due within dt.
//
// Returns:
//   - int: the number of ticks run
func (e *engine) advance(dt time.Duration) int {
	if e.tickRate <= 0 {
		return 0
	}
	e.tickAccumulator += dt
	ticks := 0
	for e.tickAccumulator >= e.tickRate {
		if ticks == maxTicksPerFrame {
			e.tickAccumulator %= e.tickRate
			break
		}
		e.tickAccumulator -= e.tickRate
		if e.tickCallback != nil {
			e.tickCallback(float32(e.tickRate.Seconds()))
		}
		ticks++
	}
	return ticks
}

// renderFrame submits the frame's items in render queue order. A draw error skips only the
// item; a frame error aborts the frame.
func renderFrame(r renderer.Renderer, f *Frame) error {
	sort.SliceStable(f.items, func(i, j int) bool {
		return queueOf(f.items[i]) < queueOf(f.items[j])
	})

	if err := r.BeginFrame(f.Input); err != nil {
		return err
	}
	for _, item := range f.items {
		// Draw logs and counts its own failures.
		_ = r.Draw(item)
	}
	if err := r.EndFrame(); err != nil {
		return err
	}
	r.Present()
	return nil
}

func queueOf(item renderer.DrawItem) int32 {
	if item.Material == nil {
		return 0
	}
	return int32(item.Material.RenderState().Queue)
}

func tickDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
