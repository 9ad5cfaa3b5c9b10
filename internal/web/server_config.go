package web

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "DRAWBOARD_LISTEN"
	EnvDevMode    = "DRAWBOARD_DEV"
	EnvStaticDir  = "DRAWBOARD_STATIC_DIR"
)

// ServerConfig holds what the HTTP surface reads from the environment.
// drawboard defaults to 127.0.0.1:1420, the simulator to 127.0.0.1:8080.
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
	StaticDir  string
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	return ServerConfigFromEnv(os.Getenv, defaultListenAddr)
}

// ServerConfigFromEnv is DefaultServerConfigFromEnv with an injectable lookup.
func ServerConfigFromEnv(getenv func(string) string, defaultListenAddr string) (ServerConfig, error) {
	cfg := ServerConfig{ListenAddr: defaultListenAddr, StaticDir: getenv(EnvStaticDir)}

	if raw := getenv(EnvListenAddr); raw != "" {
		if _, _, err := net.SplitHostPort(raw); err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be host:port (got %q): %w", EnvListenAddr, raw, err)
		}
		cfg.ListenAddr = raw
	}

	if raw := getenv(EnvDevMode); raw != "" {
		dev, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		cfg.DevMode = dev
	}
	return cfg, nil
}
