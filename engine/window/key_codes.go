package window

// Key codes carried by KeyEvent. They are GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32

	Key0 = 48
	Key1 = 49
	Key2 = 50
	Key3 = 51
	Key4 = 52
	Key5 = 53
	Key6 = 54
	Key7 = 55
	Key8 = 56
	Key9 = 57

	KeyA = 65
	KeyD = 68
	KeyE = 69
	KeyF = 70
	KeyL = 76
	KeyP = 80
	KeyQ = 81
	KeyR = 82
	KeyS = 83
	KeyW = 87

	KeyEsc       = 256
	KeyEnter     = 257
	KeyBackspace = 259
	KeyRight     = 262
	KeyLeft      = 263
	KeyDown      = 264
	KeyUp        = 265

	KeyLeftShift  = 340
	KeyRightShift = 344
)

// Mouse buttons carried by MouseButtonEvent.
const (
	MouseLeft   = 0
	MouseRight  = 1
	MouseMiddle = 2
)
