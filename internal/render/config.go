package render

import "image/color"

// Global render configuration for colors and logical canvas.
var (
	// Dark board palette, matching the canvas theme the board is exported with.
	Foreground = color.RGBA{R: 0xE3, G: 0xE3, B: 0xE8, A: 0xFF} // #e3e3e8
	Background = color.RGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF} // #121212
	Accent     = color.RGBA{R: 0xA8, G: 0xA5, B: 0xFF, A: 0xFF} // #a8a5ff
	Failure    = color.RGBA{R: 0xFF, G: 0x8A, B: 0x80, A: 0xFF} // #ff8a80

	// Logical canvas size; scaled to framebuffer.
	CanvasWidth  = 1920
	CanvasHeight = 1080

	// DefaultTextSize is used when a TextStyle leaves Size at zero.
	DefaultTextSize = 48
)
