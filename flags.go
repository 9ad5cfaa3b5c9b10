package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rook-computer/drawboard/internal/config"
	"github.com/rook-computer/drawboard/internal/web"
)

// parseConfig layers, lowest first: defaults, config file, environment,
// explicitly set flags. The board file may also be the first positional arg.
func parseConfig(args []string, getenv func(string) string, output io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet("drawboard", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: drawboard [flags] FILE.svg")
		fmt.Fprintln(output, "       drawboard inspect FILE.svg")
		fs.PrintDefaults()
	}

	def := config.Default()
	configPath := fs.String("config", "", "config file (.toml or .yaml); default "+config.DefaultPath())
	file := fs.String("file", "", "SVG board file to open and save; also configurable via "+config.EnvFile)
	autosave := fs.Bool("autosave", false, "save every autosave interval (30s by default); also "+config.EnvAutosave)
	rtsave := fs.Bool("rtsave", false, "save on scene changes, at most once per frame; also "+config.EnvRTSave)
	interval := fs.Int("autosave-interval-ms", def.AutosaveIntervalMS, "autosave interval in milliseconds")
	frameRate := fs.Int("frame-rate", def.FrameRate, "real-time save frame rate")
	listen := fs.String("listen", def.Listen, "http listen address")
	window := fs.Bool("window", false, "open the board in a Chrome app window")
	open := fs.Bool("open", false, "open the board in the default browser")
	chrome := fs.String("chrome", "", "browser executable for -window")
	kiosk := fs.Bool("kiosk", false, "show the status screen on /dev/fb0 and watch evdev keyboards")
	staticDir := fs.String("static-dir", "", "serve the UI from this directory instead of the embedded page")
	dev := fs.Bool("dev", false, "enable permissive CORS for UI development")
	debug := fs.Bool("debug", false, "enable debug logging to ./drawboard-debug.log")
	stdioLog := fs.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+config.EnvStdioLog)

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	server, err := web.ServerConfigFromEnv(getenv, cfg.Listen)
	if err != nil {
		return cfg, err
	}
	cfg.Listen = server.ListenAddr
	cfg.Dev = cfg.Dev || server.DevMode
	if server.StaticDir != "" {
		cfg.StaticDir = server.StaticDir
	}

	fileFlag := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.File = *file
			fileFlag = true
		case "autosave":
			cfg.Autosave = *autosave
		case "rtsave":
			cfg.RTSave = *rtsave
		case "autosave-interval-ms":
			cfg.AutosaveIntervalMS = *interval
		case "frame-rate":
			cfg.FrameRate = *frameRate
		case "listen":
			cfg.Listen = *listen
		case "window":
			cfg.Window = *window
		case "open":
			cfg.Open = *open
		case "chrome":
			cfg.Chrome = *chrome
		case "kiosk":
			cfg.Kiosk = *kiosk
		case "static-dir":
			cfg.StaticDir = *staticDir
		case "dev":
			cfg.Dev = *dev
		case "debug":
			cfg.Debug = *debug
		case "stdio-log":
			cfg.StdioLog = *stdioLog
		}
	})
	if rest := fs.Args(); len(rest) > 0 && !fileFlag {
		cfg.File = rest[0]
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = config.DefaultListen
	}

	if err := cfg.Validate(); err != nil {
		fs.Usage()
		return cfg, err
	}
	return cfg, nil
}
