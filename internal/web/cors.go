package web

import "net/http"

// Dev mode lets a page served from another origin, such as a canvas dev
// server on its own port, call the API and open the canvas socket.

const (
	devAllowMethods = "GET, POST, OPTIONS"
	devAllowHeaders = "Content-Type"
	devMaxAge       = "600"
)

// WithDevCORS reflects the request origin and answers preflights itself.
// Only wrap the mux with it when ServerConfig.DevMode is on.
func WithDevCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", devAllowMethods)
			h.Set("Access-Control-Allow-Headers", devAllowHeaders)
			h.Set("Access-Control-Max-Age", devMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AnyOrigin is a websocket origin check that accepts every page. Dev mode only.
func AnyOrigin(*http.Request) bool { return true }
