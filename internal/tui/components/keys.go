package components

// Global keys
const (
	KeyQuit    = "ctrl+q"
	KeyQuitAlt = "ctrl+c"
	KeyReset   = "ctrl+r"
	KeyCancel  = "esc"
	KeyEnter   = "enter"
)

// Scrolling
const (
	KeyPageUp   = "pgup"
	KeyPageDown = "pgdown"
)
