package web

import (
	"context"
	"net/http"
)

type APIV1Handlers struct {
	// SaveFunc runs one manual save on the mounted canvas.
	SaveFunc func(ctx context.Context) error
}

type APIV1Config struct {
	Handlers APIV1Handlers
	Deps     APIV1Deps
}

// RegisterAPIV1 mounts the bridge commands, status endpoints and the canvas
// socket under /api/v1/.
func RegisterAPIV1(mux *http.ServeMux, cfg APIV1Config) {
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1RouterWithDeps(cfg.Handlers, cfg.Deps)))
}

// RegisterUI serves the canvas page, embedded or from staticDir. The page is
// never cached so a reload always picks up the current glue script.
func RegisterUI(mux *http.ServeMux, staticDir string) {
	mux.Handle("/", noCache(StaticUIHandler(staticDir)))
}

// NewDefaultMux is the mux shared by drawboard and the simulator.
func NewDefaultMux(staticDir string, cfg APIV1Config) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, cfg)
	RegisterUI(mux, staticDir)
	return mux
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
