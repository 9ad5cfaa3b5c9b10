package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rook-computer/drawboard/internal/app"
	"github.com/rook-computer/drawboard/internal/app/screens"
	"github.com/rook-computer/drawboard/internal/bridge"
	"github.com/rook-computer/drawboard/internal/config"
	"github.com/rook-computer/drawboard/internal/render"
	"github.com/rook-computer/drawboard/internal/state"
	"github.com/rook-computer/drawboard/internal/system"
	"github.com/rook-computer/drawboard/internal/web"
	"github.com/rook-computer/drawboard/internal/widget"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv("127.0.0.1:8080")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	staticDir := flag.String("static-dir", defaults.StaticDir, "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	scenario := flag.String("scenario", ScenarioSample, "simulator board scenario: sample | blank | missing | corrupt")
	boardPath := flag.String("board", filepath.Join(os.TempDir(), "drawboard-sim", "board.svg"), "simulated board file")
	autosave := flag.Bool("autosave", false, "save periodically")
	rtsave := flag.Bool("rtsave", false, "save on every change, throttled to the frame rate")
	flag.Parse()

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.NewConsoleLogger(os.Stderr)

	var a *app.App
	board, err := bridge.New(*boardPath, func() { a.Exit(nil) })
	if err != nil {
		fmt.Println("board error:", err)
		os.Exit(2)
	}
	board.Logger = logger

	control := NewSimControl(*scenario, board)
	if err := control.ApplyScenario(*scenario); err != nil {
		fmt.Println("scenario init error:", err)
		os.Exit(2)
	}

	cfg := config.Default()
	cfg.Autosave, cfg.RTSave = *autosave, *rtsave
	mode := cfg.Mode()

	store := state.NewStore()
	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode, StaticDir: *staticDir})
	server.Logger = logger

	a = app.New(store, control, server, mode)
	a.Logger = logger

	hub := widget.NewHub(func(ctx context.Context, remote *widget.Remote) func() {
		return a.Mount(ctx, remote)
	})
	hub.Logger = logger
	if *devMode {
		hub.Upgrader.CheckOrigin = web.AnyOrigin
	}
	defer hub.Close()

	server.API = web.APIV1Config{
		Handlers: web.APIV1Handlers{SaveFunc: func(ctx context.Context) error {
			res := a.SaveNow(ctx)
			if res.Err != nil {
				return res.Err
			}
			if res.Status != bridge.StatusOK {
				return fmt.Errorf("couldn't save SVG to file (status %d)", res.Status)
			}
			return nil
		}},
		Deps: web.APIV1Deps{
			Board:  control,
			Status: store,
			Card:   render.NewCardRenderer(screens.NewStatusScreen()),
			Canvas: hub,
			QRCode: render.QRCodePNG,
		},
	}
	server.Routes = func(mux *http.ServeMux) { registerSimEndpoints(mux, control) }

	if err := server.Start(processCtx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}
	url := system.BoardURL(server.ListenAddr(), system.LANAddress())
	store.UpdateBoard(state.BoardInfo{File: board.Path, Mode: mode.String(), URL: url})

	fmt.Println("Drawboard simulator listening on", server.ListenAddr())
	fmt.Println("Scenario:", control.Scenario())
	fmt.Println("Board file:", board.Path)
	fmt.Println("Saving:", mode)
	fmt.Println("Board: " + url)

	if err := a.Start(processCtx); err != nil && processCtx.Err() == nil {
		fmt.Println("simulator error:", err)
	}
	_ = a.Stop()
}
