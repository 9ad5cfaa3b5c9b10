package bridge

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresPath(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestNewExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	b, err := New("~/board.svg", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "board.svg"), b.Path)
}

func TestInitialSVGMissingFile(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "missing.svg"), nil)
	require.NoError(t, err)
	assert.Equal(t, "", b.GetInitialSVG(context.Background()))
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.svg")
	b, err := New(path, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, b.SaveSVG(context.Background(), "<svg/>"))
	assert.Equal(t, "<svg/>", b.GetInitialSVG(context.Background()))

	assert.Equal(t, StatusOK, b.SaveSVG(context.Background(), "<svg></svg>"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<svg></svg>", string(data))
}

func TestSaveFailureStatus(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "no", "such", "dir", "board.svg"), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, b.SaveSVG(context.Background(), "<svg/>"))
}

func TestCloseAppRunsExitOnce(t *testing.T) {
	var exits atomic.Int32
	b, err := New(filepath.Join(t.TempDir(), "board.svg"), func() { exits.Add(1) })
	require.NoError(t, err)
	b.CloseApp()
	b.CloseApp()
	assert.Equal(t, int32(1), exits.Load())
}

func TestCloseRequestListeners(t *testing.T) {
	var exits, heard atomic.Int32
	b, err := New(filepath.Join(t.TempDir(), "board.svg"), func() { exits.Add(1) })
	require.NoError(t, err)

	unlisten := b.OnCloseRequested(func() { heard.Add(1) })
	assert.Equal(t, 1, b.Listeners())

	b.RequestClose()
	assert.Equal(t, int32(1), heard.Load())
	assert.Zero(t, exits.Load(), "listeners decide when to close")

	unlisten()
	unlisten()
	assert.Zero(t, b.Listeners())

	b.RequestClose()
	assert.Equal(t, int32(1), heard.Load())
	assert.Equal(t, int32(1), exits.Load(), "no listener closes directly")
}
