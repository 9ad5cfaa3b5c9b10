package savepolicy

import (
	"fmt"
	"time"
)

const (
	DefaultInterval    = 30000 * time.Millisecond
	DefaultFrameRate   = 30
	DefaultFrameBudget = time.Second / DefaultFrameRate
)

// Kind selects which trigger drives automatic saves.
type Kind int

const (
	Manual Kind = iota
	Periodic
	PerFrame
)

func (k Kind) String() string {
	switch k {
	case Manual:
		return "manual"
	case Periodic:
		return "periodic"
	case PerFrame:
		return "per-frame"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode is fixed for the lifetime of a Policy. Interval is only meaningful
// for Periodic, Budget only for PerFrame.
type Mode struct {
	Kind     Kind
	Interval time.Duration
	Budget   time.Duration
}

func ManualMode() Mode { return Mode{Kind: Manual} }

func PeriodicMode(interval time.Duration) Mode {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Mode{Kind: Periodic, Interval: interval}
}

func PerFrameMode(budget time.Duration) Mode {
	if budget <= 0 {
		budget = DefaultFrameBudget
	}
	return Mode{Kind: PerFrame, Budget: budget}
}

// FrameBudget is the minimum spacing between saves at rate frames per second.
func FrameBudget(rate int) time.Duration {
	if rate <= 0 {
		return DefaultFrameBudget
	}
	return time.Second / time.Duration(rate)
}

// ModeFromFlags maps the startup flags to a mode. autosave is checked first,
// so it wins when both are set.
func ModeFromFlags(autosave, rtsave bool, interval, budget time.Duration) Mode {
	switch {
	case autosave:
		return PeriodicMode(interval)
	case rtsave:
		return PerFrameMode(budget)
	default:
		return ManualMode()
	}
}

func (m Mode) String() string {
	switch m.Kind {
	case Periodic:
		return fmt.Sprintf("periodic(%s)", m.Interval)
	case PerFrame:
		return fmt.Sprintf("per-frame(%s)", m.Budget)
	default:
		return m.Kind.String()
	}
}

// Due reports whether enough time has passed since last for another save.
func Due(now, last time.Time, budget time.Duration) bool {
	return now.Sub(last) >= budget
}
