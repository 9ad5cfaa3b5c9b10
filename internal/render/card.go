package render

import (
	"bytes"
	"image/png"
	"sync"

	"github.com/rook-computer/drawboard/internal/state"
)

// CardRenderer draws a screen into an in-memory canvas and encodes it as PNG.
// It backs the status card served over HTTP on machines without a framebuffer.
type CardRenderer struct {
	Width  int
	Height int
	Screen Screen

	mu     sync.Mutex
	canvas *Canvas
}

func NewCardRenderer(screen Screen) *CardRenderer {
	return &CardRenderer{Width: CanvasWidth / 2, Height: CanvasHeight / 2, Screen: screen}
}

// PNG renders snap with the configured screen.
func (r *CardRenderer) PNG(snap state.State) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canvas == nil {
		r.canvas = NewCanvas(r.Width, r.Height)
	}
	r.canvas.FillBackground()
	if r.Screen != nil {
		r.Screen.Draw(r.canvas, snap)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.canvas.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
