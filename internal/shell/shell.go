// Package shell opens the board in a Chrome app-mode window and turns the
// user closing that window into a close request the app can act on before
// the window really goes away.
package shell

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// beforeUnloadGuard makes every unload ask first. The resulting dialog is
// answered from Go, so the user never sees it. An unload right after a reload
// shortcut (F5, Ctrl+R, Cmd+R) is let through so reloading does not quit.
const beforeUnloadGuard = `() => {
	if (window.__drawboardGuard) return;
	window.__drawboardGuard = true;
	let reloadAt = 0;
	window.addEventListener("keydown", (e) => {
		const key = (e.key || "").toLowerCase();
		if (key === "f5" || ((e.ctrlKey || e.metaKey) && key === "r")) reloadAt = Date.now();
	}, true);
	window.addEventListener("beforeunload", (e) => {
		if (Date.now() - reloadAt < 1000) return;
		e.preventDefault();
		e.returnValue = "";
	});
}`

type logger interface {
	Infof(component string, format string, args ...interface{})
	Warnf(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Warnf(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

type Config struct {
	URL string

	// Bin is the browser executable; empty lets rod find or download one.
	Bin string

	Width    int
	Height   int
	Headless bool

	// PageTimeout bounds the wait for the app page to appear.
	PageTimeout time.Duration

	Logger logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Handlers receive window lifecycle notifications. Either may be nil.
type Handlers struct {
	// CloseRequested runs when the user tries to close the window. The
	// window stays open; the app decides when to call Window.Close.
	CloseRequested func()

	// Gone runs once if the browser disappears without Window.Close.
	Gone func()
}

type Window struct {
	cfg      Config
	handlers Handlers
	lnch     *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closing   chan struct{}
	goneOnce  sync.Once
}

func newLauncher(cfg Config) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("app", cfg.URL).
		Set("window-size", fmt.Sprintf("%d,%d", cfg.Width, cfg.Height)).
		Delete("enable-automation")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	return l
}

// Open launches the browser on cfg.URL and wires the close interception.
func Open(ctx context.Context, cfg Config, handlers Handlers) (*Window, error) {
	cfg.defaults()
	if cfg.URL == "" {
		return nil, errors.New("shell: no url")
	}

	l := newLauncher(cfg)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("shell: launch: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("shell: connect: %w", err)
	}

	w := &Window{cfg: cfg, handlers: handlers, lnch: l, browser: b, closing: make(chan struct{})}
	page, err := w.waitAppPage(ctx)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.page = page

	if _, err := page.EvalOnNewDocument("(" + beforeUnloadGuard + ")()"); err != nil {
		cfg.Logger.Warnf("shell", "install unload guard for reloads: %v", err)
	}
	if _, err := page.Eval(beforeUnloadGuard); err != nil {
		cfg.Logger.Warnf("shell", "install unload guard: %v", err)
	}

	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		go w.handleDialog(e)
	})()
	go b.EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		if e.TargetID != page.TargetID {
			return false
		}
		w.gone()
		return true
	})()

	cfg.Logger.Infof("shell", "window open on %s", cfg.URL)
	return w, nil
}

func (w *Window) waitAppPage(ctx context.Context) (*rod.Page, error) {
	deadline := time.Now().Add(w.cfg.PageTimeout)
	for {
		pages, err := w.browser.Pages()
		if err == nil {
			if page, ferr := pages.FindByURL("^" + regexp.QuoteMeta(w.cfg.URL)); ferr == nil {
				return page, nil
			}
			if len(pages) > 0 {
				return pages.First(), nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("shell: no window for %s", w.cfg.URL)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (w *Window) handleDialog(e *proto.PageJavascriptDialogOpening) {
	accept := !isCloseDialog(e)
	if err := (proto.PageHandleJavaScriptDialog{Accept: accept}).Call(w.page); err != nil {
		w.cfg.Logger.Warnf("shell", "answer %s dialog: %v", e.Type, err)
	}
	if accept {
		return
	}
	select {
	case <-w.closing:
		return
	default:
	}
	w.cfg.Logger.Infof("shell", "window close requested")
	if w.handlers.CloseRequested != nil {
		w.handlers.CloseRequested()
	}
}

func isCloseDialog(e *proto.PageJavascriptDialogOpening) bool {
	return e != nil && e.Type == proto.PageDialogTypeBeforeunload
}

func (w *Window) gone() {
	select {
	case <-w.closing:
		return
	default:
	}
	w.goneOnce.Do(func() {
		w.cfg.Logger.Warnf("shell", "window went away")
		if w.handlers.Gone != nil {
			w.handlers.Gone()
		}
	})
}

// Close closes the browser without asking the page. Safe to call more than once.
func (w *Window) Close() {
	w.closeOnce.Do(func() {
		close(w.closing)
		if w.browser != nil {
			if err := w.browser.Close(); err != nil {
				w.cfg.Logger.Warnf("shell", "close browser: %v", err)
			}
		}
		if w.lnch != nil {
			w.lnch.Kill()
			w.lnch.Cleanup()
		}
	})
}
