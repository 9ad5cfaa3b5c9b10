// Package app is the lifecycle controller of the board. It mounts the canvas
// when its page connects, loads the board file into it, wires the save
// triggers for the selected mode, and saves once more before the app closes.
package app

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rook-computer/drawboard/internal/app/screens"
	"github.com/rook-computer/drawboard/internal/render"
	"github.com/rook-computer/drawboard/internal/savepolicy"
	"github.com/rook-computer/drawboard/internal/state"
	"github.com/rook-computer/drawboard/internal/svgdoc"
	"github.com/rook-computer/drawboard/internal/web"
	"github.com/rook-computer/drawboard/internal/widget"
)

// Bridge is the native command surface the controller drives.
type Bridge interface {
	GetInitialSVG(ctx context.Context) string
	SaveSVG(ctx context.Context, svg string) int
	CloseApp()
	OnCloseRequested(fn func()) (unlisten func())
}

// reconnecting is implemented by canvases that tell whether they still hold a
// scene from an earlier connection.
type reconnecting interface {
	Fresh() bool
}

// notifier is implemented by canvases that can show save results.
type notifier interface {
	Notify(event string, payload any) error
}

type App struct {
	Store  *state.Store
	Bridge Bridge
	Web    web.Server
	Render render.Renderer
	Logger Logger
	Mode   savepolicy.Mode
	Clock  savepolicy.Clock

	mu      sync.Mutex
	current *mount

	exitOnce atomic.Bool
	exitCh   chan error
}

type mount struct {
	ctx      context.Context
	widget   widget.Widget
	policy   *savepolicy.Policy
	teardown func()
}

func New(store *state.Store, bridge Bridge, webServer web.Server, mode savepolicy.Mode) *App {
	return &App{Store: store, Bridge: bridge, Web: webServer, Mode: mode, Logger: NoopLogger{}, Clock: savepolicy.SystemClock{}, exitCh: make(chan error, 1)}
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)

	if app.Web != nil {
		if err := app.Web.Start(ctx); err != nil {
			app.Logger.Errorf("app", "web server start error: %v", err)
			return err
		}
		defer app.Web.Stop()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if app.Render != nil {
		if err := app.Render.Start(ctx); err != nil {
			app.Logger.Errorf("app", "renderer start error: %v", err)
		} else {
			defer app.Render.Stop()
			app.Render.SetScreen(screens.NewStatusScreen())
			app.Render.Redraw(app.Store.Snapshot())
			wg.Add(1)
			go func() {
				defer wg.Done()
				app.Render.Run(loopCtx, app.Store)
			}()
		}
	}

	app.Store.SetPhase(state.READY)
	app.Logger.Infof("app", "board ready, mode %s", app.Mode)

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	cancel()
	wg.Wait()
	return err
}

// Stop tears down the mounted canvas, if any.
func (app *App) Stop() error {
	app.mu.Lock()
	m := app.current
	app.mu.Unlock()
	if m != nil {
		m.teardown()
	}
	return nil
}

// Mount wires a canvas that just became available. The returned teardown
// cancels the periodic timer and removes every listener Mount registered; it
// is safe to call more than once.
//
// Mounting a new canvas tears down the old one. A fresh canvas receives the
// old canvas's live scene when the old one still answers, and the board file
// otherwise. A canvas that reconnects with its scene intact is not reloaded.
func (app *App) Mount(ctx context.Context, w widget.Widget) (teardown func()) {
	fresh := true
	if r, ok := w.(reconnecting); ok {
		fresh = r.Fresh()
	}

	app.mu.Lock()
	prev := app.current
	app.mu.Unlock()
	var handover string
	if prev != nil {
		if fresh {
			handover = app.handover(ctx, prev)
		}
		prev.teardown()
	}

	ctx, cancel := context.WithCancel(ctx)
	cycle := &savepolicy.Cycle{Widget: w, Persister: app.Bridge, Logger: app.Logger}
	m := &mount{ctx: ctx, widget: w}
	m.policy = savepolicy.New(app.Mode, cycle.Run,
		savepolicy.WithClock(app.clock()),
		savepolicy.WithLogger(app.Logger),
		savepolicy.OnResult(func(res savepolicy.Result) { app.recordSave(m, res) }))

	switch {
	case !fresh:
		app.Logger.Infof("app", "canvas reconnected, keeping its scene")
		app.setCanvas(func(c *state.CanvasInfo) { c.Connected = true })
	case handover != "":
		app.setCanvas(func(c *state.CanvasInfo) { *c = state.CanvasInfo{Connected: true} })
		app.Logger.Infof("app", "loading scene from the previous canvas")
		app.loadDoc(ctx, w, handover)
	default:
		app.setCanvas(func(c *state.CanvasInfo) { *c = state.CanvasInfo{Connected: true} })
		app.load(ctx, w)
	}

	var cleanups []func()
	switch app.Mode.Kind {
	case savepolicy.Periodic:
		cleanups = append(cleanups, m.policy.Start(ctx))
	case savepolicy.PerFrame:
		app.Logger.Infof("app", "saving to file in real time")
		cleanups = append(cleanups, w.OnChange(func() { m.policy.Changed(ctx) }))
	}
	cleanups = append(cleanups, app.Bridge.OnCloseRequested(func() { app.shutdown(m) }))
	cleanups = append(cleanups, w.OnKey(func(k widget.KeyEvent) {
		if k.IsSave() {
			m.policy.Save(ctx, savepolicy.TriggerManual)
		}
	}))

	var once sync.Once
	m.teardown = func() {
		once.Do(func() {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
			cancel()
			app.mu.Lock()
			wasCurrent := app.current == m
			if wasCurrent {
				app.current = nil
			}
			app.mu.Unlock()
			if wasCurrent {
				app.setCanvas(func(c *state.CanvasInfo) { c.Connected = false })
			}
		})
	}

	app.mu.Lock()
	app.current = m
	app.mu.Unlock()
	return m.teardown
}

// SaveNow runs one manual save on the mounted canvas. Without a canvas it
// only logs.
func (app *App) SaveNow(ctx context.Context) savepolicy.Result {
	app.mu.Lock()
	m := app.current
	app.mu.Unlock()
	if m == nil {
		app.Logger.Warnf("app", "save: canvas not initialized yet")
		return savepolicy.Result{Trigger: savepolicy.TriggerManual, Err: widget.ErrNotReady}
	}
	return m.policy.Save(ctx, savepolicy.TriggerManual)
}

// Mounted reports whether a canvas is currently mounted.
func (app *App) Mounted() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.current != nil
}

// shutdown saves once and only then asks the bridge to close the app.
func (app *App) shutdown(m *mount) {
	app.Store.SetPhase(state.CLOSING)
	app.Logger.Infof("app", "window close requested")
	m.policy.Save(m.ctx, savepolicy.TriggerShutdown)
	app.Bridge.CloseApp()
}

func (app *App) load(ctx context.Context, w widget.Widget) {
	doc := app.Bridge.GetInitialSVG(ctx)
	app.Logger.Infof("app", "loading initial SVG content")
	app.loadDoc(ctx, w, doc)
}

// handover exports the scene of a still connected canvas so the canvas
// replacing it starts from unsaved edits instead of the file. It returns ""
// when the old canvas cannot answer.
func (app *App) handover(ctx context.Context, prev *mount) string {
	doc, err := (&savepolicy.Cycle{Widget: prev.widget}).Document(ctx)
	if err != nil {
		app.Logger.Warnf("app", "previous canvas did not hand over its scene: %v", err)
		return ""
	}
	return doc
}

func (app *App) loadDoc(ctx context.Context, w widget.Widget, doc string) {
	contents, err := app.loadInto(ctx, w, doc)
	if err != nil {
		app.Logger.Warnf("app", "load failed: %v", err)
		app.Logger.Infof("app", "starting empty scene")
		if rerr := w.ResetScene(ctx, true); rerr != nil {
			app.Logger.Errorf("app", "reset scene: %v", rerr)
		}
		app.setCanvas(func(c *state.CanvasInfo) { c.Loaded = false; c.LoadError = err.Error(); c.Elements = 0 })
		return
	}
	app.setCanvas(func(c *state.CanvasInfo) { c.Loaded = true; c.LoadError = ""; c.Elements = countElements(contents.Elements) })
}

func (app *App) loadInto(ctx context.Context, w widget.Widget, doc string) (widget.Contents, error) {
	info, err := svgdoc.Inspect(doc)
	if err != nil {
		return widget.Contents{}, err
	}
	if !info.HasScene {
		app.Logger.Warnf("app", "initial SVG has no embedded scene")
	}
	contents, err := w.LoadFromBlob(ctx, doc, svgdoc.MIMEType)
	if err != nil {
		return contents, err
	}
	contents, err = contents.Loaded()
	if err != nil {
		return contents, err
	}
	if err := w.UpdateScene(ctx, contents); err != nil {
		return contents, err
	}
	if contents.HasFiles() {
		if err := w.AddFiles(ctx, contents.Files); err != nil {
			return contents, err
		}
	}
	return contents, nil
}

func (app *App) recordSave(m *mount, res savepolicy.Result) {
	app.Store.RecordSave(res.Finished, string(res.Trigger), res.Status, res.Err)
	if n, ok := m.widget.(notifier); ok && res.Err == nil {
		_ = n.Notify("saved", map[string]any{"status": res.Status, "trigger": res.Trigger})
	}
}

func (app *App) setCanvas(update func(*state.CanvasInfo)) {
	canvas := app.Store.Snapshot().Canvas
	update(&canvas)
	app.Store.UpdateCanvas(canvas)
}

func (app *App) clock() savepolicy.Clock {
	if app.Clock == nil {
		return savepolicy.SystemClock{}
	}
	return app.Clock
}

func countElements(raw json.RawMessage) int {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return 0
	}
	return len(elements)
}
