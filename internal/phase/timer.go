package phase

import (
	"sync"
	"time"
)

// Timer schedules phase activations at their planned offsets.
//
// Activations are delivered while the timer's lock is held, so once Cancel
// returns no callback is running and none will start. Callbacks must not call
// back into the same Timer.
type Timer struct {
	mu         sync.Mutex
	generation uint64
	active     bool
	timers     []*time.Timer
}

// NewTimer returns an idle timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Start cancels any previously scheduled set and schedules onPhase(i) for
// every phase at the cumulative offset of the phases before it.
func (t *Timer) Start(phases []Phase, onPhase func(index int)) {
	if t == nil || onPhase == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
	t.active = true
	gen := t.generation

	offsets := Offsets(phases)
	t.timers = make([]*time.Timer, 0, len(phases))
	for i := range phases {
		index := i
		t.timers = append(t.timers, time.AfterFunc(offsets[i], func() {
			t.fire(gen, index, onPhase)
		}))
	}
}

// Cancel stops every pending activation. It is safe to call repeatedly.
func (t *Timer) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Active reports whether a scheduled set is live.
func (t *Timer) Active() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) fire(gen uint64, index int, onPhase func(int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || gen != t.generation {
		return
	}
	onPhase(index)
}

func (t *Timer) stopLocked() {
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
	t.active = false
}
