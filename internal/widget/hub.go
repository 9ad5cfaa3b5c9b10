package widget

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// MountFunc is called once a connected page reports ready. The returned
// teardown runs when that page disconnects.
type MountFunc func(ctx context.Context, w *Remote) (teardown func())

// Hub upgrades canvas page connections. Only the most recently readied page
// stays connected. A newer page is mounted while the older one is still
// connected, so the mount can hand its scene over, and the older one is then
// closed with CloseSuperseded.
type Hub struct {
	Upgrader websocket.Upgrader
	Mount    MountFunc
	Logger   logger

	mountMu sync.Mutex

	mu     sync.Mutex
	active *Remote
}

func NewHub(mount MountFunc) *Hub {
	return &Hub{Mount: mount, Logger: noopLogger{}}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger().Errorf("widget", "upgrade failed: %v", err)
		return
	}
	remote := NewRemote(conn)
	remote.Logger = h.logger()
	h.Serve(r.Context(), remote)
}

// Serve runs remote until it disconnects, mounting it when ready.
func (h *Hub) Serve(ctx context.Context, remote *Remote) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mounted := make(chan func(), 1)
	go func() {
		select {
		case <-remote.Ready():
		case <-remote.Done():
			mounted <- nil
			return
		}
		h.logger().Infof("widget", "canvas ready")
		h.mountMu.Lock()
		defer h.mountMu.Unlock()
		var teardown func()
		if h.Mount != nil {
			teardown = h.Mount(ctx, remote)
		}
		h.activate(remote)
		mounted <- teardown
	}()

	if err := remote.Run(ctx); err != nil && ctx.Err() == nil {
		h.logger().Warnf("widget", "connection ended: %v", err)
	}
	cancel()
	if teardown := <-mounted; teardown != nil {
		teardown()
	}
	h.deactivate(remote)
	h.logger().Infof("widget", "canvas disconnected")
}

// Active returns the currently connected ready page, if any.
func (h *Hub) Active() *Remote {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *Hub) activate(remote *Remote) {
	h.mu.Lock()
	prev := h.active
	h.active = remote
	h.mu.Unlock()
	if prev != nil && prev != remote {
		h.logger().Infof("widget", "newer canvas connected, closing previous one")
		_ = prev.CloseWith(CloseSuperseded, "superseded")
	}
}

func (h *Hub) deactivate(remote *Remote) {
	h.mu.Lock()
	if h.active == remote {
		h.active = nil
	}
	h.mu.Unlock()
}

func (h *Hub) logger() logger {
	if h.Logger == nil {
		return noopLogger{}
	}
	return h.Logger
}

// Close disconnects the active page, running its teardown.
func (h *Hub) Close() error {
	if remote := h.Active(); remote != nil {
		return remote.Close()
	}
	return nil
}
