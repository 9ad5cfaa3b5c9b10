package savepolicy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rook-computer/drawboard/internal/svgdoc"
	"github.com/rook-computer/drawboard/internal/widget"
)

// Exporter is the part of the canvas a save cycle needs.
type Exporter interface {
	Scene(ctx context.Context) (widget.Scene, error)
	ExportToSVG(ctx context.Context, scene widget.Scene, opts widget.ExportOptions) (string, error)
}

// Persister writes a finished document and returns a status code, 0 on success.
type Persister interface {
	SaveSVG(ctx context.Context, svg string) int
}

// Cycle is the export+persist pass shared by every trigger.
type Cycle struct {
	Widget    Exporter
	Persister Persister
	Logger    logger
}

// Run reads the scene, exports it with the save options, prefixes the
// preamble and hands the document to the persister.
func (c *Cycle) Run(ctx context.Context) (int, error) {
	log := c.Logger
	if log == nil {
		log = noopLogger{}
	}
	if c.Persister == nil {
		return 0, errors.New("save: no persister configured")
	}

	log.Infof("save", "attempting to save file")
	doc, err := c.Document(ctx)
	if err != nil {
		return 0, err
	}
	return c.Persister.SaveSVG(ctx, doc), nil
}

// Document exports the current scene as a complete board document without
// persisting it.
func (c *Cycle) Document(ctx context.Context) (string, error) {
	if c.Widget == nil {
		return "", widget.ErrNotReady
	}
	scene, err := c.Widget.Scene(ctx)
	if err != nil {
		return "", fmt.Errorf("read scene: %w", err)
	}
	markup, err := c.Widget.ExportToSVG(ctx, scene, widget.SaveExportOptions())
	if err != nil {
		return "", fmt.Errorf("export svg: %w", err)
	}
	return svgdoc.Compose(markup), nil
}
