package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Key is a keyboard key code as reported by glfw.
type Key uint32

// Window hosts a WebGPU surface and forwards the few input events the demo uses.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Escape always closes the window.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyDownCallback(callback func(key Key))

	// SurfaceDescriptor returns the platform surface descriptor built by the wgpuglfw bridge,
	// or nil if the window is closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration.
	RequestClose()

	// Close destroys the window and terminates glfw.
	//
	// Returns:
	//   - error: an error if the window was already closed
	Close() error

	// ProcessMessages polls events until the window closes, calling the update callback each
	// iteration. It must run on the thread that created the window.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// Time returns the seconds elapsed since the window was created.
	Time() float64
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	width     int
	height    int
	minWidth  int
	minHeight int
	resizable bool

	platform *glfwWindow

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(key Key)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. The calling goroutine is locked to its OS thread,
// since glfw must be driven from the thread that initialized it.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-bind",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 240,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}

	runtime.LockOSThread()
	p, err := openGLFW(w)
	if err != nil {
		panic(fmt.Sprintf("window: failed to create window: %v", err))
	}
	w.platform = p
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) RequestClose() {
	if w.platform != nil {
		w.platform.window.SetShouldClose(true)
	}
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window: already closed")
	}
	w.platform.destroy()
	w.platform = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		w.platform.poll()
		if !w.IsRunning() {
			return
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Time() float64 {
	if w.platform == nil {
		return 0
	}
	return w.platform.time()
}
