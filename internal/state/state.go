package state

import (
	"sync"
	"time"
)

type Phase int

const (
	BOOTING Phase = iota
	READY
	CLOSING
)

func (p Phase) String() string {
	switch p {
	case BOOTING:
		return "booting"
	case READY:
		return "ready"
	case CLOSING:
		return "closing"
	default:
		return "unknown"
	}
}

type BoardInfo struct {
	File string
	Mode string
	URL  string
}

type CanvasInfo struct {
	Connected bool
	Loaded    bool
	LoadError string
	Elements  int
}

type SaveInfo struct {
	LastAttempt time.Time
	LastWrite   time.Time
	Trigger     string
	Status      int
	Err         string
	Saves       int
	Failures    int
}

type State struct {
	Phase  Phase
	Board  BoardInfo
	Canvas CanvasInfo
	Save   SaveInfo
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Phase: BOOTING}}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) SetPhase(phase Phase) {
	store.mu.Lock()
	store.state.Phase = phase
	store.mu.Unlock()
}

func (store *Store) UpdateBoard(board BoardInfo) {
	store.mu.Lock()
	store.state.Board = board
	store.mu.Unlock()
}

func (store *Store) UpdateCanvas(canvas CanvasInfo) {
	store.mu.Lock()
	store.state.Canvas = canvas
	store.mu.Unlock()
}

// RecordSave folds one finished save cycle into the counters.
func (store *Store) RecordSave(at time.Time, trigger string, status int, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	s := &store.state.Save
	s.LastAttempt = at
	s.Trigger = trigger
	s.Status = status
	s.Err = ""
	if err != nil {
		s.Err = err.Error()
		s.Failures++
		return
	}
	if status != 0 {
		s.Failures++
		return
	}
	s.LastWrite = at
	s.Saves++
}
