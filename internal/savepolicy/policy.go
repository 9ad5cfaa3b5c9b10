// Package savepolicy decides when the board is exported and persisted: on
// demand, on a fixed interval, or on scene changes throttled to a frame rate.
package savepolicy

import (
	"context"
	"sync"
	"time"
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

// Trigger names what started a save cycle.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerInterval Trigger = "interval"
	TriggerChange   Trigger = "change"
	TriggerShutdown Trigger = "shutdown"
)

// StatusOK is the persistence status of a successful write.
const StatusOK = 0

// CycleFunc runs one export+persist pass. A non-nil error means nothing was
// handed to persistence; otherwise status is what persistence returned.
type CycleFunc func(ctx context.Context) (status int, err error)

// Result describes one finished save cycle.
type Result struct {
	Trigger  Trigger
	Status   int
	Err      error
	Started  time.Time
	Finished time.Time
}

// OK reports whether the cycle wrote the document.
func (r Result) OK() bool { return r.Err == nil && r.Status == StatusOK }

type Option func(*Policy)

func WithClock(clock Clock) Option { return func(p *Policy) { p.clock = clock } }

func WithLogger(l logger) Option { return func(p *Policy) { p.logger = l } }

// OnResult registers an observer called after every cycle.
func OnResult(fn func(Result)) Option { return func(p *Policy) { p.onResult = fn } }

// Policy owns the last-write timestamp for one mounted board.
type Policy struct {
	mode     Mode
	cycle    CycleFunc
	clock    Clock
	logger   logger
	onResult func(Result)

	mu        sync.Mutex
	lastWrite time.Time
}

// New returns a policy whose last write is the zero time, so the first change
// after mounting always saves instead of waiting one budget from the mount.
func New(mode Mode, cycle CycleFunc, opts ...Option) *Policy {
	p := &Policy{mode: mode, cycle: cycle, clock: SystemClock{}, logger: noopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) Mode() Mode { return p.mode }

// LastWrite is the completion time of the latest successful write, or the
// zero time when nothing has been written yet.
func (p *Policy) LastWrite() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastWrite
}

// Save runs exactly one cycle. Cycles started from different triggers may
// overlap; the timestamp only ever moves forward to the latest completion.
func (p *Policy) Save(ctx context.Context, trigger Trigger) Result {
	res := Result{Trigger: trigger, Started: p.clock.Now()}
	res.Status, res.Err = p.cycle(ctx)
	res.Finished = p.clock.Now()

	switch {
	case res.Err != nil:
		p.logger.Warnf("save", "%s save skipped: %v", trigger, res.Err)
	case res.Status != StatusOK:
		p.logger.Warnf("save", "couldn't save SVG to file (status %d)", res.Status)
	default:
		p.mu.Lock()
		if res.Finished.After(p.lastWrite) {
			p.lastWrite = res.Finished
		}
		p.mu.Unlock()
	}
	if p.onResult != nil {
		p.onResult(res)
	}
	return res
}

// Changed is the per-frame trigger for a scene change notification. It
// reports whether a cycle ran; outside PerFrame mode it never does.
func (p *Policy) Changed(ctx context.Context) (Result, bool) {
	if p.mode.Kind != PerFrame {
		return Result{}, false
	}
	if !Due(p.clock.Now(), p.LastWrite(), p.mode.Budget) {
		return Result{}, false
	}
	return p.Save(ctx, TriggerChange), true
}

// Start runs the periodic timer until ctx ends or stop is called. Outside
// Periodic mode it does nothing. stop waits for an in-flight cycle.
func (p *Policy) Start(ctx context.Context) (stop func()) {
	if p.mode.Kind != Periodic {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.mode.Interval)
	done := make(chan struct{})
	p.logger.Infof("save", "saving to file automatically every %s", p.mode.Interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				p.Save(ctx, TriggerInterval)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
