package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rook-computer/drawboard/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	mu       sync.Mutex
	initial  string
	status   int
	saved    []string
	closed   chan struct{}
	requests chan struct{}
}

func newFakeBoard(initial string) *fakeBoard {
	return &fakeBoard{initial: initial, closed: make(chan struct{}, 1), requests: make(chan struct{}, 1)}
}

func (b *fakeBoard) GetInitialSVG(context.Context) string { return b.initial }

func (b *fakeBoard) SaveSVG(_ context.Context, svg string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, svg)
	return b.status
}

func (b *fakeBoard) CloseApp()     { b.closed <- struct{}{} }
func (b *fakeBoard) RequestClose() { b.requests <- struct{}{} }

type fakeCard struct{ err error }

func (c fakeCard) PNG(snap state.State) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []byte("png:" + snap.Phase.String()), nil
}

func newTestServer(t *testing.T, board Board, store *state.Store, handlers APIV1Handlers) *httptest.Server {
	t.Helper()
	s := NewHTTPServer(ServerConfig{ListenAddr: "127.0.0.1:0"})
	s.API = APIV1Config{
		Handlers: handlers,
		Deps: APIV1Deps{
			Board:  board,
			Status: store,
			Card:   fakeCard{},
			QRCode: func(payload string, size int) ([]byte, error) { return []byte(payload), nil },
		},
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestInitialSVG(t *testing.T) {
	ts := newTestServer(t, newFakeBoard("<svg/>"), state.NewStore(), APIV1Handlers{})

	resp, err := http.Get(ts.URL + "/api/v1/initial-svg")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "<svg/>", string(body))

	resp, err = http.Post(ts.URL+"/api/v1/initial-svg", "text/plain", nil)
	require.NoError(t, err)
	var apiErr apiError
	decodeJSON(t, resp, &apiErr)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method_not_allowed", apiErr.Error)
}

func TestSaveSVG(t *testing.T) {
	board := newFakeBoard("")
	ts := newTestServer(t, board, state.NewStore(), APIV1Handlers{})

	resp, err := http.Post(ts.URL+"/api/v1/save-svg", "application/json", strings.NewReader(`{"svg":"<svg>a</svg>"}`))
	require.NoError(t, err)
	var status statusResponse
	decodeJSON(t, resp, &status)
	assert.Equal(t, 0, status.Status)

	board.mu.Lock()
	board.status = 1
	board.mu.Unlock()
	resp, err = http.Post(ts.URL+"/api/v1/save-svg", "image/svg+xml", strings.NewReader(`<svg>b</svg>`))
	require.NoError(t, err)
	decodeJSON(t, resp, &status)
	assert.Equal(t, 1, status.Status)

	board.mu.Lock()
	assert.Equal(t, []string{"<svg>a</svg>", "<svg>b</svg>"}, board.saved)
	board.mu.Unlock()

	resp, err = http.Post(ts.URL+"/api/v1/save-svg", "application/json", strings.NewReader(`{"svg":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseRoutes(t *testing.T) {
	board := newFakeBoard("")
	ts := newTestServer(t, board, state.NewStore(), APIV1Handlers{})

	resp, err := http.Post(ts.URL+"/api/v1/close-request", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case <-board.requests:
	case <-time.After(time.Second):
		t.Fatal("close request not forwarded")
	}

	resp, err = http.Post(ts.URL+"/api/v1/close", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case <-board.closed:
	case <-time.After(time.Second):
		t.Fatal("close not forwarded")
	}
}

func TestBoardNotConfigured(t *testing.T) {
	ts := newTestServer(t, nil, state.NewStore(), APIV1Handlers{})
	resp, err := http.Get(ts.URL + "/api/v1/initial-svg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestSaveRoute(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		saveErr error
	)
	ts := newTestServer(t, newFakeBoard(""), state.NewStore(), APIV1Handlers{SaveFunc: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return saveErr
	}})

	resp, err := http.Post(ts.URL+"/api/v1/save", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	saveErr = errors.New("widget: not initialized yet")
	mu.Unlock()
	resp, err = http.Post(ts.URL+"/api/v1/save", "", nil)
	require.NoError(t, err)
	var apiErr apiError
	decodeJSON(t, resp, &apiErr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "save_failed", apiErr.Error)
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestStatus(t *testing.T) {
	store := state.NewStore()
	store.SetPhase(state.READY)
	store.UpdateBoard(state.BoardInfo{File: "/tmp/b.svg", Mode: "manual", URL: "http://127.0.0.1:1420/"})
	store.UpdateCanvas(state.CanvasInfo{Connected: true, Loaded: true, Elements: 4})
	store.RecordSave(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), "manual", 0, nil)
	ts := newTestServer(t, newFakeBoard(""), store, APIV1Handlers{})

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	var got boardStatusResponse
	decodeJSON(t, resp, &got)
	assert.Equal(t, "ready", got.Phase)
	assert.Equal(t, "/tmp/b.svg", got.File)
	assert.Equal(t, 4, got.Canvas.Elements)
	assert.Equal(t, "2026-03-04T05:06:07.000Z", got.Save.LastWrite)
	assert.Equal(t, 1, got.Save.Saves)
}

func TestStatusImages(t *testing.T) {
	store := state.NewStore()
	ts := newTestServer(t, newFakeBoard(""), store, APIV1Handlers{})

	resp, err := http.Get(ts.URL + "/api/v1/status.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "png:booting", string(body))

	resp, err = http.Get(ts.URL + "/api/v1/qr.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	store.UpdateBoard(state.BoardInfo{URL: "http://10.0.0.2:1420/"})
	resp, err = http.Get(ts.URL + "/api/v1/qr.png?size=128")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "http://10.0.0.2:1420/", string(body))

	resp, err = http.Get(ts.URL + "/api/v1/qr.png?size=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmbeddedUI(t *testing.T) {
	ts := newTestServer(t, newFakeBoard(""), state.NewStore(), APIV1Handlers{})
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "main-container")
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	resp, err = http.Get(ts.URL + "/board.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDevCORS(t *testing.T) {
	s := NewHTTPServer(ServerConfig{DevMode: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/save-svg", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/v1/initial-svg", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, AnyOrigin(req))
}

func TestServerConfigFromEnv(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	cfg, err := ServerConfigFromEnv(getenv, "127.0.0.1:1420")
	require.NoError(t, err)
	assert.Equal(t, ServerConfig{ListenAddr: "127.0.0.1:1420"}, cfg)

	env[EnvListenAddr] = ":9000"
	env[EnvDevMode] = "true"
	env[EnvStaticDir] = "/srv/board-ui"
	cfg, err = ServerConfigFromEnv(getenv, "127.0.0.1:1420")
	require.NoError(t, err)
	assert.Equal(t, ServerConfig{ListenAddr: ":9000", DevMode: true, StaticDir: "/srv/board-ui"}, cfg)

	env[EnvDevMode] = "maybe"
	_, err = ServerConfigFromEnv(getenv, "")
	assert.ErrorContains(t, err, EnvDevMode)

	env[EnvDevMode] = ""
	env[EnvListenAddr] = "9000"
	_, err = ServerConfigFromEnv(getenv, "")
	assert.ErrorContains(t, err, EnvListenAddr)
}

func TestHTTPServerStartStop(t *testing.T) {
	s := NewHTTPServer(ServerConfig{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, s.Start(context.Background()))
	addr := s.ListenAddr()
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.Error(t, s.Start(context.Background()))
}
