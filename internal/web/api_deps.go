package web

import (
	"context"
	"net/http"

	"github.com/rook-computer/drawboard/internal/state"
)

// Board is the native command surface exposed to the page.
type Board interface {
	GetInitialSVG(ctx context.Context) string
	SaveSVG(ctx context.Context, svg string) int
	CloseApp()
	RequestClose()
}

// StatusSource is typically the app's *state.Store.
type StatusSource interface {
	Snapshot() state.State
}

// StatusCard renders a status snapshot as PNG.
type StatusCard interface {
	PNG(snap state.State) ([]byte, error)
}

type APIV1Deps struct {
	Board  Board
	Status StatusSource
	Card   StatusCard

	// Canvas accepts the page's widget socket, usually a *widget.Hub.
	Canvas http.Handler

	// QRCode encodes a payload as PNG; render.QRCodePNG in production.
	QRCode func(payload string, sizePx int) ([]byte, error)
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Status == nil {
		out.Status = state.NewStore()
	}
	return out
}
