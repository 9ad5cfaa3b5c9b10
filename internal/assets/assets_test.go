package assets_test

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-computer/drawboard/internal/assets"
	"github.com/rook-computer/drawboard/internal/widget"
)

func TestBoardScriptReconnectProtocol(t *testing.T) {
	script, err := fs.ReadFile(assets.WebUI, "board.js")
	require.NoError(t, err)

	// a reconnecting page says whether it still holds a scene
	assert.Contains(t, string(script), `send({ event: "ready", fresh: !loaded })`)
	// and stops reconnecting once another window took over
	assert.Contains(t, string(script), fmt.Sprintf("const CLOSE_SUPERSEDED = %d;", widget.CloseSuperseded))
	assert.Contains(t, string(script), "e.code === CLOSE_SUPERSEDED")
}

func TestPageFiles(t *testing.T) {
	for _, name := range []string{"index.html", "board.js", "board.css"} {
		_, err := fs.Stat(assets.WebUI, name)
		assert.NoError(t, err, name)
	}
}
