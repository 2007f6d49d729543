package window

// Event is an input or window event delivered to the scene updater.
// The renderer never inspects events; updaters type-switch on the concrete types below.
type Event interface {
	isEvent()
}

// Action is what happened to a key or mouse button.
type Action int

const (
	Press Action = iota
	Release
	Repeat
)

func (a Action) String() string {
	switch a {
	case Press:
		return "press"
	case Release:
		return "release"
	case Repeat:
		return "repeat"
	default:
		return "unknown"
	}
}

// KeyEvent reports a key press, repeat or release. Key uses the Key* codes.
type KeyEvent struct {
	Key    uint32
	Action Action
}

// MouseButtonEvent reports a mouse button press or release at the cursor position.
type MouseButtonEvent struct {
	Button uint32
	Action Action
	X, Y   float64
}

// MouseMoveEvent reports the cursor position in window coordinates.
type MouseMoveEvent struct {
	X, Y float64
}

// ScrollEvent reports a wheel delta. Positive Y scrolls up.
type ScrollEvent struct {
	X, Y float64
}

// ResizeEvent reports a new framebuffer size in pixels.
type ResizeEvent struct {
	Width, Height uint32
}

// FrameEvent is delivered once per frame after input events.
type FrameEvent struct {
	// Seconds since the previous frame.
	Delta float64
	// Frame counts frames since the loop started.
	Frame uint64
}

func (KeyEvent) isEvent()         {}
func (MouseButtonEvent) isEvent() {}
func (MouseMoveEvent) isEvent()   {}
func (ScrollEvent) isEvent()      {}
func (ResizeEvent) isEvent()      {}
func (FrameEvent) isEvent()       {}
