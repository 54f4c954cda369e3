package common

// Key codes delivered by window key callbacks. Printable keys use their upper case ASCII value,
// the rest follow GLFW numbering.
const (
	KeyA = 'A'
	KeyD = 'D'
	KeyE = 'E'
	KeyQ = 'Q'
	KeyS = 'S'
	KeyW = 'W'

	KeySpace     = ' '
	KeyEsc       = 256
	KeyLeftShift = 340
)
