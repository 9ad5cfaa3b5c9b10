// Package render paints the board status: onto the Linux framebuffer in
// kiosk mode, and into PNG cards for the status endpoint everywhere else.
package render

import (
	"context"
	"image"
	"image/color"

	"github.com/rook-computer/drawboard/internal/state"
)

type logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Source hands out the state to draw; *state.Store is one.
type Source interface {
	Snapshot() state.State
}

// Renderer owns an output device and keeps one Screen on it.
type Renderer interface {
	Start(ctx context.Context) error
	Stop() error
	SetScreen(screen Screen)
	// Run redraws from src until ctx is done.
	Run(ctx context.Context, src Source)
	Redraw(snap state.State)
}

type Screen interface {
	Start(ctx context.Context) error
	Stop() error
	Draw(r Drawer, s state.State)
}

// ScreenFunc turns a draw function into a Screen with no lifecycle.
type ScreenFunc func(r Drawer, s state.State)

func (ScreenFunc) Start(context.Context) error    { return nil }
func (ScreenFunc) Stop() error                    { return nil }
func (f ScreenFunc) Draw(r Drawer, s state.State) { f(r, s) }

// NoopRenderer is used when there is no display to paint on.
type NoopRenderer struct{}

func (*NoopRenderer) Start(context.Context) error { return nil }
func (*NoopRenderer) Stop() error                 { return nil }
func (*NoopRenderer) SetScreen(Screen)            {}
func (*NoopRenderer) Run(context.Context, Source) {}
func (*NoopRenderer) Redraw(state.State)          {}

// Drawer is what screens paint with. Coordinates are in the logical canvas
// size; the renderer scales to the device.
type Drawer interface {
	Size() (width int, height int)
	FillBackground()

	MeasureText(text string, style TextStyle) TextMetrics
	// DrawText anchors y at the top of the line; style.Align decides x.
	DrawText(text string, x, y int, style TextStyle) TextMetrics
	DrawTextCentered(text string)

	DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode)
}

type TextAlign int

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

type TextStyle struct {
	Color color.Color // nil means Foreground
	Size  int         // points; 0 means DefaultTextSize
	Align TextAlign
}

type TextMetrics struct {
	Width      int
	Height     int
	Ascent     int
	Descent    int
	LineHeight int
}

type ScaleMode int

const (
	ScaleModeFit ScaleMode = iota
	ScaleModeFill
	ScaleModeStretch
)
