package window

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event collection.
// Input is queued as opaque events and drained once per frame by the engine loop.
type Window interface {
	// PollEvents processes pending platform messages and returns the events queued since the
	// previous call, oldest first.
	//
	// Returns:
	//   - []Event: the queued events, or nil
	PollEvents() []Event

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// FramebufferSize returns the current drawable size in pixels, which differs from the
	// window size on high-DPI displays.
	//
	// Returns:
	//   - width: width in pixels
	//   - height: height in pixels
	FramebufferSize() (width, height uint32)
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state and the pending event queue.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	minWidth, minHeight int
	maxWidth, maxHeight int

	// width and height are the current framebuffer size in pixels.
	width  int
	height int

	// closeOnEscape closes the window when Escape is pressed instead of queueing the key.
	closeOnEscape bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	mu     sync.Mutex
	events []Event
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a new Window with the specified options.
// Applies default values first, then each option in order.
// It panics when the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:         "umbra",
		minWidth:      320,
		minHeight:     200,
		width:         1280,
		height:        720,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// push queues ev. Platform callbacks run on the polling thread, the lock only guards
// against a reader on another goroutine.
func (w *engineWindow) push(ev Event) {
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}

func (w *engineWindow) drain() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.events
	w.events = nil
	return out
}

func (w *engineWindow) PollEvents() []Event {
	platformProcessMessages(w)
	return w.drain()
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) FramebufferSize() (uint32, uint32) {
	return uint32(max(w.width, 0)), uint32(max(w.height, 0))
}
