// Package bridge is the native side of the board: it owns the SVG file on
// disk, process termination, and the window-close-requested notification.
package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
)

// Status codes returned by SaveSVG.
const (
	StatusOK     = 0
	StatusFailed = 1
)

// EventCloseRequested is the name pages see for the close notification.
const EventCloseRequested = "window-close-requested"

type logger interface {
	Infof(component string, format string, args ...interface{})
	Warnf(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Warnf(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// FileBridge persists the board to a single SVG file.
type FileBridge struct {
	Path   string
	Logger logger

	// Exit is run once by CloseApp.
	Exit func()

	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
	exitOnce  sync.Once
}

// New resolves path (expanding a leading ~) and returns a bridge for it.
func New(path string, exit func()) (*FileBridge, error) {
	if path == "" {
		return nil, errors.New("bridge: no file given")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, err
	}
	return &FileBridge{Path: abs, Exit: exit, Logger: noopLogger{}}, nil
}

func (b *FileBridge) log() logger {
	if b.Logger == nil {
		return noopLogger{}
	}
	return b.Logger
}

// GetInitialSVG returns the file contents, or "" when it cannot be read.
func (b *FileBridge) GetInitialSVG(ctx context.Context) string {
	_ = ctx
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.log().Warnf("bridge", "read %s: %v", b.Path, err)
		}
		return ""
	}
	return string(data)
}

// SaveSVG replaces the file contents with svg.
func (b *FileBridge) SaveSVG(ctx context.Context, svg string) int {
	_ = ctx
	if err := os.WriteFile(b.Path, []byte(svg), 0o644); err != nil {
		b.log().Errorf("bridge", "failed to save SVG: %v", err)
		return StatusFailed
	}
	b.log().Infof("bridge", "saved SVG to %s", b.Path)
	return StatusOK
}

// CloseApp requests process termination. Only the first call has an effect.
func (b *FileBridge) CloseApp() {
	b.exitOnce.Do(func() {
		b.log().Infof("bridge", "closing app")
		if b.Exit != nil {
			b.Exit()
		}
	})
}

// OnCloseRequested registers fn for the close notification. The returned
// func unregisters it; calling it again is a no-op.
func (b *FileBridge) OnCloseRequested(fn func()) (unlisten func()) {
	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Listeners reports how many close listeners are registered.
func (b *FileBridge) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// RequestClose emits the close notification, as the window does when the user
// tries to close it. Listeners are expected to save and then call CloseApp.
// With nobody listening the app closes directly.
func (b *FileBridge) RequestClose() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	b.log().Infof("bridge", "%s", EventCloseRequested)
	if len(fns) == 0 {
		b.CloseApp()
		return
	}
	for _, fn := range fns {
		fn()
	}
}
