package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorOK      = 114 // green
	colorPending = 179 // yellow
	colorBad     = 167 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderState colors a moderation or listing state: accepted and active are
// green, pending and draft yellow, everything else red.
func RenderState(s string) string {
	switch s {
	case "accepted", "active", "published", "completed":
		return render(colorOK, s)
	case "pending", "draft":
		return render(colorPending, s)
	default:
		return render(colorBad, s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
