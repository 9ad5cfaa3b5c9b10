package render

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	fb "github.com/gonutz/framebuffer"

	"github.com/rook-computer/drawboard/internal/state"
)

const (
	fbFrameInterval = time.Second / 2
	// Relative times on the status screen ("12s ago") need a repaint even
	// when nothing else changed.
	fbRefreshInterval = time.Second
)

// FBRenderer paints the logical canvas onto a Linux framebuffer device.
type FBRenderer struct {
	Device string
	Logger logger
	Debug  bool

	dev     *fb.Device
	canvas  *Canvas
	running atomic.Bool

	mu       sync.Mutex
	current  Screen
	last     state.State
	lastDraw time.Time
	drawn    bool
}

func NewFBRenderer() *FBRenderer { return &FBRenderer{Device: "/dev/fb0"} }

func (r *FBRenderer) Start(ctx context.Context) error {
	dev, err := fb.Open(r.Device)
	if err != nil {
		return err
	}
	r.dev = dev
	bounds := dev.Bounds()
	r.logf("framebuffer %s open, %dx%d", r.Device, bounds.Dx(), bounds.Dy())

	r.canvas = NewCanvas(CanvasWidth, CanvasHeight)
	if r.Logger != nil {
		r.canvas.Logger = r.Logger
	}
	r.running.Store(true)
	return nil
}

func (r *FBRenderer) Stop() error {
	r.running.Store(false)
	r.mu.Lock()
	current := r.current
	r.current = nil
	r.mu.Unlock()
	if current != nil {
		_ = current.Stop()
	}
	if r.dev != nil {
		r.dev.Close()
	}
	return nil
}

// SetScreen swaps the screen and forces the next frame to be painted.
func (r *FBRenderer) SetScreen(screen Screen) {
	r.mu.Lock()
	prev := r.current
	r.current = screen
	r.drawn = false
	r.mu.Unlock()
	if prev != nil && prev != screen {
		_ = prev.Stop()
	}
}

// Redraw paints snap unconditionally.
func (r *FBRenderer) Redraw(snap state.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paint(snap, time.Now())
}

// Run polls src twice a second and repaints when the state changed or the
// refresh interval ran out.
func (r *FBRenderer) Run(ctx context.Context, src Source) {
	ticker := time.NewTicker(fbFrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			snap := src.Snapshot()
			r.mu.Lock()
			if !r.drawn || snap != r.last || now.Sub(r.lastDraw) >= fbRefreshInterval {
				r.paint(snap, now)
			}
			r.mu.Unlock()
		}
	}
}

// paint needs r.mu held.
func (r *FBRenderer) paint(snap state.State, now time.Time) {
	if !r.running.Load() || r.current == nil || r.dev == nil {
		return
	}
	r.canvas.FillBackground()
	r.current.Draw(r.canvas, snap)
	blitToFB(r.dev, r.canvas.Image())
	r.last, r.lastDraw, r.drawn = snap, now, true
	if r.Debug {
		r.logf("frame painted, phase=%s saves=%d", snap.Phase, snap.Save.Saves)
	}
}

func (r *FBRenderer) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Infof("fb", format, args...)
	}
}

// blitToFB scales canvas onto the device with nearest-neighbour sampling.
func blitToFB(dev *fb.Device, canvas *image.RGBA) {
	bounds := dev.Bounds()
	fw, fh := bounds.Dx(), bounds.Dy()
	cw, ch := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	for y := 0; y < fh; y++ {
		sy := y * ch / fh
		for x := 0; x < fw; x++ {
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, opaque(canvas.RGBAAt(x*cw/fw, sy)))
		}
	}
}
