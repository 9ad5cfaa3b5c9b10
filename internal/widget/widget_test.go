package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage plays the browser side of the protocol.
type fakePage struct {
	t       *testing.T
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]func(params json.RawMessage) (any, string)
	calls    []string

	gone   chan struct{}
	endErr error
}

func dialPage(t *testing.T, srv *httptest.Server) *fakePage {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	p := &fakePage{t: t, conn: conn, handlers: map[string]func(json.RawMessage) (any, string){}, gone: make(chan struct{})}
	go p.loop()
	t.Cleanup(func() { _ = conn.Close() })
	return p
}

func (p *fakePage) handle(method string, fn func(params json.RawMessage) (any, string)) {
	p.mu.Lock()
	p.handlers[method] = fn
	p.mu.Unlock()
}

func (p *fakePage) send(v any) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	require.NoError(p.t, p.conn.WriteJSON(v))
}

func (p *fakePage) called() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// closeCode waits for the server to drop the page and returns the close code
// it sent, or -1 when the connection ended without one.
func (p *fakePage) closeCode(t *testing.T) int {
	t.Helper()
	select {
	case <-p.gone:
	case <-time.After(2 * time.Second):
		t.Fatal("page was never disconnected")
	}
	var ce *websocket.CloseError
	if errors.As(p.endErr, &ce) {
		return ce.Code
	}
	return -1
}

func (p *fakePage) loop() {
	defer close(p.gone)
	for {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := p.conn.ReadJSON(&req); err != nil {
			p.endErr = err
			return
		}
		if req.Method == "" {
			continue
		}
		p.mu.Lock()
		p.calls = append(p.calls, req.Method)
		fn := p.handlers[req.Method]
		p.mu.Unlock()

		reply := map[string]any{"id": req.ID}
		if fn == nil {
			reply["result"] = nil
		} else if result, errMsg := fn(req.Params); errMsg != "" {
			reply["error"] = errMsg
		} else {
			reply["result"] = result
		}
		p.writeMu.Lock()
		_ = p.conn.WriteJSON(reply)
		p.writeMu.Unlock()
	}
}

func startHub(t *testing.T, mount MountFunc) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(mount)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestRemoteCallsRoundTrip(t *testing.T) {
	mounted := make(chan *Remote, 1)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})
	page := dialPage(t, srv)
	page.handle("getScene", func(json.RawMessage) (any, string) {
		return map[string]any{"elements": []any{map[string]any{"id": "e1"}}, "appState": map[string]any{}, "files": map[string]any{}}, ""
	})
	exportParams := make(chan json.RawMessage, 1)
	page.handle("exportToSvg", func(params json.RawMessage) (any, string) {
		exportParams <- params
		return "<svg></svg>", ""
	})
	page.send(map[string]any{"event": EventReady})

	var remote *Remote
	select {
	case remote = <-mounted:
	case <-time.After(2 * time.Second):
		t.Fatal("widget never mounted")
	}

	ctx := context.Background()
	scene, err := remote.Scene(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e1"}]`, string(scene.Elements))

	markup, err := remote.ExportToSVG(ctx, scene, SaveExportOptions())
	require.NoError(t, err)
	assert.Equal(t, "<svg></svg>", markup)
	assert.JSONEq(t, `{"elements":[{"id":"e1"}],"appState":{},"files":{},"options":{"exportBackground":false,"exportWithDarkMode":true,"exportEmbedScene":true}}`, string(<-exportParams))
}

func TestRemoteErrorFromPage(t *testing.T) {
	mounted := make(chan *Remote, 1)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})
	page := dialPage(t, srv)
	page.handle("loadFromBlob", func(json.RawMessage) (any, string) { return nil, "Error: invalid SVG" })
	page.send(map[string]any{"event": EventReady})
	remote := <-mounted

	_, err := remote.LoadFromBlob(context.Background(), "", "image/svg+xml")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "loadFromBlob", remoteErr.Method)
}

func TestRemoteNotReady(t *testing.T) {
	r := NewRemote(nil)
	_, err := r.Scene(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRemoteEventsAndListenerRemoval(t *testing.T) {
	mounted := make(chan *Remote, 1)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})
	page := dialPage(t, srv)
	page.send(map[string]any{"event": EventReady})
	remote := <-mounted

	var changes atomic.Int32
	keys := make(chan KeyEvent, 4)
	removeChange := remote.OnChange(func() { changes.Add(1) })
	removeKey := remote.OnKey(func(k KeyEvent) { keys <- k })

	page.send(map[string]any{"event": EventChange})
	page.send(map[string]any{"event": EventKeyDown, "key": "s", "ctrlKey": true})

	select {
	case k := <-keys:
		assert.True(t, k.IsSave())
	case <-time.After(2 * time.Second):
		t.Fatal("key event not delivered")
	}
	assert.Eventually(t, func() bool { return changes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	removeChange()
	removeChange()
	removeKey()
	assert.Equal(t, 0, remote.changes.len())
	assert.Equal(t, 0, remote.keys.len())
}

func TestHubTeardownOnDisconnect(t *testing.T) {
	var tornDown atomic.Bool
	mounted := make(chan struct{}, 1)
	hub, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- struct{}{}
		return func() { tornDown.Store(true) }
	})
	page := dialPage(t, srv)
	page.send(map[string]any{"event": EventReady})
	<-mounted
	assert.Eventually(t, func() bool { return hub.Active() != nil }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, page.conn.Close())
	assert.Eventually(t, tornDown.Load, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.Active() == nil }, 2*time.Second, 10*time.Millisecond)
}

func TestPendingCallFailsOnDisconnect(t *testing.T) {
	mounted := make(chan *Remote, 1)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})
	page := dialPage(t, srv)
	page.handle("getScene", func(json.RawMessage) (any, string) {
		_ = page.conn.Close()
		return nil, ""
	})
	page.send(map[string]any{"event": EventReady})
	remote := <-mounted

	_, err := remote.Scene(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestContentsHelpers(t *testing.T) {
	c := Contents{AppState: json.RawMessage(`{"theme":"dark","isLoading":true}`), Files: json.RawMessage(`{}`)}
	assert.False(t, c.HasFiles())

	loaded, err := c.Loaded()
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark","isLoading":false}`, string(loaded.AppState))

	c.Files = json.RawMessage(`{"f1":{"id":"f1","mimeType":"image/png","dataURL":"data:"}}`)
	assert.True(t, c.HasFiles())

	empty, err := Contents{}.Loaded()
	require.NoError(t, err)
	assert.JSONEq(t, `{"isLoading":false}`, string(empty.AppState))
}

func TestKeyEventIsSave(t *testing.T) {
	assert.True(t, KeyEvent{Key: "s", Ctrl: true}.IsSave())
	assert.False(t, KeyEvent{Key: "s"}.IsSave())
	assert.False(t, KeyEvent{Key: "t", Ctrl: true}.IsSave())
}

func TestReadyReportsFreshPage(t *testing.T) {
	mounted := make(chan *Remote, 2)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})

	first := dialPage(t, srv)
	first.send(map[string]any{"event": EventReady, "fresh": true})
	assert.True(t, (<-mounted).Fresh())

	second := dialPage(t, srv)
	second.send(map[string]any{"event": EventReady})
	assert.False(t, (<-mounted).Fresh())
}

func TestNewerPageSupersedesOlder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	hub, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mu.Lock()
		order = append(order, "mount")
		mu.Unlock()
		return func() {
			mu.Lock()
			order = append(order, "teardown")
			mu.Unlock()
		}
	})

	older := dialPage(t, srv)
	older.send(map[string]any{"event": EventReady, "fresh": true})
	assert.Eventually(t, func() bool { return hub.Active() != nil }, 2*time.Second, 10*time.Millisecond)
	first := hub.Active()

	newer := dialPage(t, srv)
	newer.send(map[string]any{"event": EventReady, "fresh": true})

	assert.Equal(t, CloseSuperseded, older.closeCode(t))
	assert.Eventually(t, func() bool {
		active := hub.Active()
		return active != nil && active != first
	}, 2*time.Second, 10*time.Millisecond)

	// the newer page was mounted before the older one went away
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"mount", "mount", "teardown"}, order)
	mu.Unlock()

	select {
	case <-newer.gone:
		t.Fatal("newer page was disconnected")
	default:
	}
}

func TestCloseWithSendsCode(t *testing.T) {
	mounted := make(chan *Remote, 1)
	_, srv := startHub(t, func(ctx context.Context, w *Remote) func() {
		mounted <- w
		return nil
	})
	page := dialPage(t, srv)
	page.send(map[string]any{"event": EventReady})
	remote := <-mounted

	require.NoError(t, remote.Close())
	assert.Equal(t, websocket.CloseNormalClosure, page.closeCode(t))
}
