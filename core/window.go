package core

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"ray-tracer/internal/gpu"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

// Window owns a GLFW window and the OpenGL context created with it. Every GPU
// object built on that context must be released before Destroy returns; use
// OnDestroy to register their teardown.
type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	onDestroy []func()
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     640,
		Height:    480,
		Title:     "Ray Tracer",
		Resizable: true,
		VSync:     true,
	}
}

// NewWindow creates the window with an OpenGL 4.3 core context (the first
// version with compute shaders) and makes the context current.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, &gpu.ResourceCreationError{Resource: "GLFW", Err: err}
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, &gpu.ResourceCreationError{Resource: "window", Err: err}
	}
	handle.MakeContextCurrent()
	glfw.SwapInterval(boolToInt(config.VSync))

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
	}
	return window, nil
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

// FramebufferSizeCallback is the type for framebuffer resize handlers
type FramebufferSizeCallback func(width, height int)

func (w *Window) SetFramebufferSizeCallback(cb FramebufferSizeCallback) {
	w.Handle.SetFramebufferSizeCallback(func(win *glfw.Window, width, height int) {
		w.Width, w.Height = width, height
		cb(width, height)
	})
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

// OnDestroy registers fn to run, while the context is still current, when
// the window is destroyed. Hooks run in reverse registration order.
func (w *Window) OnDestroy(fn func()) {
	w.onDestroy = append(w.onDestroy, fn)
}

func (w *Window) Destroy() {
	if w.Handle == nil {
		return
	}
	for i := len(w.onDestroy) - 1; i >= 0; i-- {
		w.onDestroy[i]()
	}
	w.onDestroy = nil
	w.Handle.Destroy()
	w.Handle = nil
	glfw.Terminate()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	KeyEscape = int(glfw.KeyEscape)
	KeyQ      = int(glfw.KeyQ)
)
