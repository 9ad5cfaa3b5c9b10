package screens

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/rook-computer/drawboard/internal/render"
	"github.com/rook-computer/drawboard/internal/render/layout"
	"github.com/rook-computer/drawboard/internal/state"
)

// StatusScreen shows which board is open, how it is saved, how the last save
// went, and a QR code pointing at the board URL.
type StatusScreen struct {
	Now     func() time.Time
	Padding int

	mu     sync.Mutex
	qrURL  string
	qrCode image.Image
}

func NewStatusScreen() *StatusScreen {
	return &StatusScreen{Now: time.Now, Padding: 48}
}

func (s *StatusScreen) Start(ctx context.Context) error { return nil }
func (s *StatusScreen) Stop() error                     { return nil }

func (s *StatusScreen) Draw(r render.Drawer, st state.State) {
	width, height := r.Size()
	area := layout.Inset(image.Rect(0, 0, width, height), s.Padding)
	left, right := layout.Columns(area, 2.0/3)

	r.FillBackground()

	title := r.DrawText("drawboard", left.Min.X, left.Min.Y, render.TextStyle{Size: 64, Color: render.Accent})
	left.Min.Y += title.LineHeight + s.Padding/2

	lines := StatusLines(st, s.now())
	lineHeight := r.MeasureText("Mg", render.TextStyle{Size: 32}).LineHeight
	for i, row := range layout.Rows(left, lineHeight, len(lines)) {
		style := render.TextStyle{Size: 32}
		if lines[i].Failed {
			style.Color = render.Failure
		}
		r.DrawText(lines[i].Text, row.Min.X, row.Min.Y, style)
	}

	if qr := s.qr(st.Board.URL); qr != nil {
		r.DrawImageInRect(qr, layout.CenterSquare(layout.Inset(right, s.Padding/2)), render.ScaleModeFit)
	}
}

// Line is one row of the status text.
type Line struct {
	Text   string
	Failed bool
}

// StatusLines renders st as human readable rows.
func StatusLines(st state.State, now time.Time) []Line {
	lines := []Line{{Text: "phase: " + st.Phase.String()}}
	if st.Board.File != "" {
		lines = append(lines, Line{Text: "board: " + filepath.Base(st.Board.File)})
	}
	if st.Board.Mode != "" {
		lines = append(lines, Line{Text: "saving: " + st.Board.Mode})
	}

	switch {
	case !st.Canvas.Connected:
		lines = append(lines, Line{Text: "canvas: waiting for page"})
	case st.Canvas.LoadError != "":
		lines = append(lines, Line{Text: "canvas: started empty (" + st.Canvas.LoadError + ")", Failed: true})
	default:
		lines = append(lines, Line{Text: fmt.Sprintf("canvas: %d elements", st.Canvas.Elements)})
	}

	save := st.Save
	switch {
	case save.LastAttempt.IsZero():
		lines = append(lines, Line{Text: "last save: never"})
	case save.Err != "":
		lines = append(lines, Line{Text: "last save failed: " + save.Err, Failed: true})
	case save.Status != 0:
		lines = append(lines, Line{Text: fmt.Sprintf("last save failed: status %d", save.Status), Failed: true})
	default:
		lines = append(lines, Line{Text: fmt.Sprintf("last save: %s ago (%s)", ago(now, save.LastWrite), save.Trigger)})
	}
	if save.Saves > 0 || save.Failures > 0 {
		lines = append(lines, Line{Text: fmt.Sprintf("saves: %d ok, %d failed", save.Saves, save.Failures)})
	}
	if st.Board.URL != "" {
		lines = append(lines, Line{Text: st.Board.URL})
	}
	return lines
}

func ago(now, then time.Time) string {
	d := now.Sub(then)
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

func (s *StatusScreen) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// qr returns the cached code for url, regenerating it when the URL changes.
func (s *StatusScreen) qr(url string) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url == "" {
		return nil
	}
	if url != s.qrURL {
		img, err := render.GenerateQRCodeImage(url, 0)
		if err != nil {
			return nil
		}
		s.qrURL, s.qrCode = url, img
	}
	return s.qrCode
}
