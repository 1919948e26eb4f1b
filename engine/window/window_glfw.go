package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Key codes, equal to their glfw values.
const (
	KeySpace = Key(glfw.KeySpace)
	KeyR     = Key(glfw.KeyR)
	KeyL     = Key(glfw.KeyL)
	KeyLeft  = Key(glfw.KeyLeft)
	KeyRight = Key(glfw.KeyRight)
	KeyUp    = Key(glfw.KeyUp)
	KeyDown  = Key(glfw.KeyDown)
	KeyEqual = Key(glfw.KeyEqual)
	KeyMinus = Key(glfw.KeyMinus)
)

// glfwWindow holds the glfw state behind an engineWindow.
type glfwWindow struct {
	window *glfw.Window
}

// openGLFW initializes glfw and creates a window without a client API, since WebGPU draws
// through its own surface.
func openGLFW(w *engineWindow) (*glfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if w.resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw create window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, glfw.DontCare, glfw.DontCare)

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			win.SetShouldClose(true)
			return
		}
		if w.onKeyDown != nil {
			w.onKeyDown(Key(key))
		}
	})

	// Framebuffer size, not window size: they differ on high-DPI displays and the surface
	// must be configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = win.GetFramebufferSize()

	common.Logger().Info("window: created", "title", w.title, "width", w.width, "height", w.height)
	return &glfwWindow{window: win}, nil
}

func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.window)
}

func (g *glfwWindow) running() bool {
	return !g.window.ShouldClose()
}

func (g *glfwWindow) poll() {
	glfw.PollEvents()
}

func (g *glfwWindow) time() float64 {
	return glfw.GetTime()
}

func (g *glfwWindow) destroy() {
	g.window.Destroy()
	glfw.Terminate()
}
