package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/rook-computer/drawboard/internal/app"
	"github.com/rook-computer/drawboard/internal/app/screens"
	"github.com/rook-computer/drawboard/internal/bridge"
	"github.com/rook-computer/drawboard/internal/config"
	"github.com/rook-computer/drawboard/internal/render"
	"github.com/rook-computer/drawboard/internal/shell"
	"github.com/rook-computer/drawboard/internal/state"
	"github.com/rook-computer/drawboard/internal/system"
	"github.com/rook-computer/drawboard/internal/web"
	"github.com/rook-computer/drawboard/internal/widget"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "inspect" {
		return runInspect(args[1:], os.Stdout, os.Stderr)
	}

	cfg, err := parseConfig(args, os.Getenv, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "drawboard:", err)
		return 2
	}

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	if cfg.StdioLog != "" {
		if err := redirectStdIO(cfg.StdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	logger := newLogger(cfg)
	mode := cfg.Mode()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := state.NewStore()

	var a *app.App
	var window atomic.Pointer[shell.Window]
	board, err := bridge.New(cfg.File, func() {
		logger.Infof("main", "closing")
		if w := window.Load(); w != nil {
			w.Close()
		}
		a.Exit(nil)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "drawboard:", err)
		return 2
	}
	board.Logger = logger

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: cfg.Listen, DevMode: cfg.Dev})
	server.StaticDir = cfg.StaticDir
	server.Logger = logger

	a = app.New(store, board, server, mode)
	a.Logger = logger

	hub := widget.NewHub(func(ctx context.Context, remote *widget.Remote) func() {
		return a.Mount(ctx, remote)
	})
	hub.Logger = logger
	if cfg.Dev {
		hub.Upgrader.CheckOrigin = web.AnyOrigin
	}

	server.API = web.APIV1Config{
		Handlers: web.APIV1Handlers{SaveFunc: func(ctx context.Context) error {
			res := a.SaveNow(ctx)
			return saveError(res.Err, res.Status)
		}},
		Deps: web.APIV1Deps{
			Board:  board,
			Status: store,
			Card:   render.NewCardRenderer(screens.NewStatusScreen()),
			Canvas: hub,
			QRCode: render.QRCodePNG,
		},
	}

	if err := server.Start(ctx); err != nil {
		logger.Errorf("main", "web server start error: %v", err)
		return 1
	}
	url := system.BoardURL(server.ListenAddr(), system.LANAddress())
	store.UpdateBoard(state.BoardInfo{File: board.Path, Mode: mode.String(), URL: url})
	logger.Infof("main", "board %s at %s (%s)", board.Path, url, mode)

	if cfg.Kiosk {
		fb := render.NewFBRenderer()
		fb.Logger = logger
		fb.Debug = cfg.Debug
		a.Render = fb
		if err := system.SetGraphicsMode(); err != nil {
			logger.Warnf("tty", "KD_GRAPHICS failed: %v", err)
		} else {
			defer system.RestoreTextMode()
		}
		if err := system.HideCursor(); err == nil {
			defer system.ShowCursor()
		}
		system.WatchKeyboard(ctx, logger, system.KeyHandlers{
			Save:  func() { a.SaveNow(ctx) },
			Close: board.RequestClose,
		})
	}

	switch {
	case cfg.Window:
		w, err := shell.Open(ctx, shell.Config{URL: url, Bin: cfg.Chrome, Logger: logger}, shell.Handlers{
			CloseRequested: board.RequestClose,
			Gone:           func() { a.Exit(errors.New("window closed unexpectedly")) },
		})
		if err != nil {
			logger.Errorf("main", "open window: %v", err)
			return 1
		}
		window.Store(w)
		defer w.Close()
	case cfg.Open:
		if err := system.OpenBrowser(ctx, system.ExecRunner{}, url); err != nil {
			logger.Warnf("main", "open browser: %v", err)
		}
	}

	// First signal: save and close like a window close. Second: leave now.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case <-signals:
		case <-ctx.Done():
			return
		}
		logger.Infof("main", "signal received, saving before exit")
		go board.RequestClose()
		select {
		case <-signals:
			a.Exit(errors.New("interrupted"))
		case <-ctx.Done():
		}
	}()

	runErr := a.Start(ctx)
	_ = a.Stop()
	_ = hub.Close()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Errorf("main", "%v", runErr)
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) app.Logger {
	var logger app.Logger = app.NewConsoleLogger(os.Stderr)
	if !cfg.Debug {
		return logger
	}
	f, err := os.OpenFile("./drawboard-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Println("debug log open error:", err)
		return logger
	}
	logger = app.TeeLogger{logger, app.NewFileLogger(f)}
	logger.Infof("main", "debug logging enabled")
	return logger
}

func saveError(err error, status int) error {
	if err != nil {
		return err
	}
	if status != bridge.StatusOK {
		return fmt.Errorf("couldn't save SVG to file (status %d)", status)
	}
	return nil
}

// openStdioLog opens the stdio log for appending and marks the start of this
// run in it. An empty path means no redirect.
func openStdioLog(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "--- drawboard pid %d started %s ---\n", os.Getpid(), time.Now().Format(time.RFC3339))
	return f, nil
}
