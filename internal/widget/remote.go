package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type logger interface {
	Infof(component string, format string, args ...interface{})
	Warnf(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Warnf(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Event names sent by the page.
const (
	EventReady   = "ready"
	EventChange  = "change"
	EventKeyDown = "keydown"
)

// CloseSuperseded is the close code sent to a page that a newer page replaced.
// Pages do not reconnect after it.
const CloseSuperseded = 4001

const (
	defaultCallTimeout = 10 * time.Second
	writeTimeout       = 5 * time.Second
	eventBuffer        = 64
)

type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type notification struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	ID     uint64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	// Fresh is set on ready by a page that has not loaded a document yet.
	Fresh bool `json:"fresh,omitempty"`
	KeyEvent
}

type response struct {
	result json.RawMessage
	err    error
}

// RemoteError is an error reported by the page for one call.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return "widget: " + e.Method + ": " + e.Message
}

// Remote is a canvas page connected over a WebSocket.
type Remote struct {
	// CallTimeout bounds every call that has no earlier deadline.
	CallTimeout time.Duration
	Logger      logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response

	ready     atomic.Bool
	fresh     atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
	events    chan inbound

	changes listeners[func()]
	keys    listeners[func(KeyEvent)]
}

func NewRemote(conn *websocket.Conn) *Remote {
	return &Remote{
		CallTimeout: defaultCallTimeout,
		Logger:      noopLogger{},
		conn:        conn,
		pending:     make(map[uint64]chan response),
		readyCh:     make(chan struct{}),
		done:        make(chan struct{}),
		events:      make(chan inbound, eventBuffer),
	}
}

// Ready is closed once the page reports that its canvas API is available.
func (r *Remote) Ready() <-chan struct{} { return r.readyCh }

// Fresh reports whether the page announced on ready that it has not loaded a
// document yet. A page reconnecting after a dropped socket still holds its
// scene and is not fresh.
func (r *Remote) Fresh() bool { return r.fresh.Load() }

// Done is closed when the connection is gone.
func (r *Remote) Done() <-chan struct{} { return r.done }

// Run reads from the connection until it fails or ctx ends. Listener
// callbacks run on a separate goroutine so they may call back into r.
func (r *Remote) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.dispatch()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = r.Close()
		case <-r.done:
		}
	}()

	err := r.readLoop()
	r.shutdown()
	wg.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, CloseSuperseded) {
		return nil
	}
	return err
}

func (r *Remote) readLoop() error {
	for {
		var msg inbound
		if err := r.conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Event == "" {
			r.resolve(msg)
			continue
		}
		switch msg.Event {
		case EventReady:
			r.readyOnce.Do(func() {
				r.fresh.Store(msg.Fresh)
				r.ready.Store(true)
				close(r.readyCh)
			})
		case EventChange, EventKeyDown:
			select {
			case r.events <- msg:
			default:
				r.Logger.Warnf("widget", "event queue full, dropping %s", msg.Event)
			}
		default:
			r.Logger.Warnf("widget", "unknown event %q", msg.Event)
		}
	}
}

func (r *Remote) dispatch() {
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.events:
			switch msg.Event {
			case EventChange:
				for _, fn := range r.changes.snapshot() {
					fn()
				}
			case EventKeyDown:
				for _, fn := range r.keys.snapshot() {
					fn(msg.KeyEvent)
				}
			}
		}
	}
}

func (r *Remote) resolve(msg inbound) {
	r.mu.Lock()
	ch, ok := r.pending[msg.ID]
	delete(r.pending, msg.ID)
	r.mu.Unlock()
	if !ok {
		r.Logger.Warnf("widget", "response for unknown call %d", msg.ID)
		return
	}
	var resp response
	if msg.Error != "" {
		resp.err = errors.New(msg.Error)
	} else {
		resp.result = msg.Result
	}
	ch <- resp
}

func (r *Remote) shutdown() {
	r.doneOnce.Do(func() {
		close(r.done)
		r.mu.Lock()
		for id, ch := range r.pending {
			ch <- response{err: ErrClosed}
			delete(r.pending, id)
		}
		r.mu.Unlock()
	})
}

// Close sends a normal close frame and drops the connection.
func (r *Remote) Close() error {
	return r.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith sends a close frame with code and reason and drops the connection.
func (r *Remote) CloseWith(code int, reason string) error {
	r.writeMu.Lock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	r.writeMu.Unlock()
	return r.conn.Close()
}

// Notify pushes an event to the page without waiting for an answer.
func (r *Remote) Notify(event string, payload any) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	return r.write(notification{Event: event, Payload: payload})
}

func (r *Remote) write(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return r.conn.WriteJSON(v)
}

func (r *Remote) call(ctx context.Context, method string, params any, out any) error {
	if !r.ready.Load() {
		return ErrNotReady
	}
	if _, ok := ctx.Deadline(); !ok && r.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CallTimeout)
		defer cancel()
	}

	ch := make(chan response, 1)
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return ErrClosed
	default:
	}
	r.nextID++
	id := r.nextID
	r.pending[id] = ch
	r.mu.Unlock()

	if err := r.write(request{ID: id, Method: method, Params: params}); err != nil {
		r.forget(id)
		return fmt.Errorf("widget: %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		r.forget(id)
		return fmt.Errorf("widget: %s: %w", method, ctx.Err())
	case resp := <-ch:
		if resp.err != nil {
			if errors.Is(resp.err, ErrClosed) {
				return resp.err
			}
			return &RemoteError{Method: method, Message: resp.err.Error()}
		}
		if out == nil || len(resp.result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.result, out); err != nil {
			return fmt.Errorf("widget: %s: decode result: %w", method, err)
		}
		return nil
	}
}

func (r *Remote) forget(id uint64) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Remote) Scene(ctx context.Context) (Scene, error) {
	var scene Scene
	err := r.call(ctx, "getScene", nil, &scene)
	return scene, err
}

func (r *Remote) ExportToSVG(ctx context.Context, scene Scene, opts ExportOptions) (string, error) {
	var markup string
	err := r.call(ctx, "exportToSvg", struct {
		Scene
		Options ExportOptions `json:"options"`
	}{scene, opts}, &markup)
	return markup, err
}

func (r *Remote) LoadFromBlob(ctx context.Context, blob string, mimeType string) (Contents, error) {
	var contents Contents
	err := r.call(ctx, "loadFromBlob", map[string]string{"blob": blob, "type": mimeType}, &contents)
	return contents, err
}

func (r *Remote) UpdateScene(ctx context.Context, contents Contents) error {
	return r.call(ctx, "updateScene", contents, nil)
}

func (r *Remote) AddFiles(ctx context.Context, files json.RawMessage) error {
	return r.call(ctx, "addFiles", map[string]json.RawMessage{"files": files}, nil)
}

func (r *Remote) ResetScene(ctx context.Context, resetLoadingState bool) error {
	return r.call(ctx, "resetScene", map[string]bool{"resetLoadingState": resetLoadingState}, nil)
}

func (r *Remote) OnChange(fn func()) func() { return r.changes.add(fn) }

func (r *Remote) OnKey(fn func(KeyEvent)) func() { return r.keys.add(fn) }

var _ Widget = (*Remote)(nil)
