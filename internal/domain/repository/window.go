package repository

// Window represents a history lookback in days.
type Window int

const (
	WindowWeek    Window = 7
	WindowShort   Window = 14
	WindowMonth   Window = 30
	WindowQuarter Window = 90
)

// IsValidWindow returns true if w is a supported lookback.
func IsValidWindow(w Window) bool {
	switch w {
	case WindowWeek, WindowShort, WindowMonth, WindowQuarter:
		return true
	default:
		return false
	}
}

// DefaultWindow returns the default history lookback.
func DefaultWindow() Window { return WindowMonth }

// NormalizeWindow converts a raw day count to a valid window (or default).
func NormalizeWindow(days int) Window {
	if days <= 0 {
		return DefaultWindow()
	}
	w := Window(days)
	if IsValidWindow(w) {
		return w
	}
	// Snap arbitrary day counts to the nearest supported bucket.
	switch {
	case days <= 10:
		return WindowWeek
	case days <= 21:
		return WindowShort
	case days <= 60:
		return WindowMonth
	default:
		return WindowQuarter
	}
}
