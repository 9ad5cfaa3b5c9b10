// Package widget is the Go side of the embedded diagramming canvas. The canvas
// owns the scene; this package only moves opaque scene handles, export requests
// and input events between the page and the lifecycle controller.
package widget

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	ErrNotReady = errors.New("widget: not initialized yet")
	ErrClosed   = errors.New("widget: connection closed")
)

// Scene holds the three handles the canvas hands out for export. Their
// contents are never interpreted here.
type Scene struct {
	Elements json.RawMessage `json:"elements"`
	AppState json.RawMessage `json:"appState"`
	Files    json.RawMessage `json:"files"`
}

// ExportOptions are merged into the app state passed to the SVG export.
type ExportOptions struct {
	ExportBackground   bool `json:"exportBackground"`
	ExportWithDarkMode bool `json:"exportWithDarkMode"`
	ExportEmbedScene   bool `json:"exportEmbedScene"`
}

// SaveExportOptions is what every save cycle exports with: transparent
// background, dark mode, and the scene embedded for round-tripping.
func SaveExportOptions() ExportOptions {
	return ExportOptions{ExportBackground: false, ExportWithDarkMode: true, ExportEmbedScene: true}
}

// Contents is a scene restored from a blob.
type Contents struct {
	Elements json.RawMessage `json:"elements,omitempty"`
	AppState json.RawMessage `json:"appState,omitempty"`
	Files    json.RawMessage `json:"files,omitempty"`
}

// HasFiles reports whether the restored scene carries binary files.
func (c Contents) HasFiles() bool {
	if len(c.Files) == 0 {
		return false
	}
	var files map[string]json.RawMessage
	if err := json.Unmarshal(c.Files, &files); err != nil {
		return false
	}
	return len(files) > 0
}

// Loaded returns c with isLoading cleared in its app state.
func (c Contents) Loaded() (Contents, error) {
	state := map[string]json.RawMessage{}
	if len(c.AppState) > 0 && string(c.AppState) != "null" {
		if err := json.Unmarshal(c.AppState, &state); err != nil {
			return c, err
		}
	}
	state["isLoading"] = json.RawMessage("false")
	raw, err := json.Marshal(state)
	if err != nil {
		return c, err
	}
	c.AppState = raw
	return c, nil
}

// KeyEvent is a keydown seen by the canvas container.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
	Meta  bool   `json:"metaKey"`
}

// IsSave reports whether the key combination requests a manual save.
func (k KeyEvent) IsSave() bool {
	return k.Ctrl && k.Key == "s"
}

// Widget is the imperative API of a mounted canvas.
type Widget interface {
	Scene(ctx context.Context) (Scene, error)
	ExportToSVG(ctx context.Context, scene Scene, opts ExportOptions) (string, error)
	LoadFromBlob(ctx context.Context, blob string, mimeType string) (Contents, error)
	UpdateScene(ctx context.Context, contents Contents) error
	AddFiles(ctx context.Context, files json.RawMessage) error
	ResetScene(ctx context.Context, resetLoadingState bool) error

	// OnChange and OnKey register listeners; the returned func removes the
	// listener and is safe to call more than once.
	OnChange(fn func()) (remove func())
	OnKey(fn func(KeyEvent)) (remove func())
}

type listeners[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]T
}

func (l *listeners[T]) add(fn T) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]T)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, 0, len(l.fns))
	for i := 0; i < l.nextID; i++ {
		if fn, ok := l.fns[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
