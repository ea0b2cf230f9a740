package sim

import (
	"errors"
	"sync"

	"threewire/core"
)

var (
	ErrBadChannel    = errors.New("compare channel out of range")
	ErrNotConfigured = errors.New("timer not configured")
)

type compareChannel struct {
	ticks        uint32
	clearOnMatch bool
	armed        bool
}

// Timer is a software core.CompareTimer. It does not run on its own: each
// Step jumps the counter to the next armed compare value and runs the handler
// as a simulated interrupt.
type Timer struct {
	freq uint32

	mu       sync.Mutex
	handler  core.CompareHandler
	period   uint32
	channels [core.NumChannels]compareChannel
	counter  uint32
	elapsed  uint64
	enabled  bool
}

// NewTimer creates a timer counting at freq Hz
func NewTimer(freq uint32) *Timer {
	return &Timer{freq: freq}
}

func (t *Timer) Frequency() uint32 {
	return t.freq
}

func (t *Timer) Configure(periodTicks uint32, handler core.CompareHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = periodTicks
	t.handler = handler
	t.counter = 0
	return nil
}

func (t *Timer) ArmChannel(ch core.TimerChannel, ticks uint32, clearOnMatch bool) error {
	if ch >= core.NumChannels {
		return ErrBadChannel
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[ch] = compareChannel{ticks: ticks, clearOnMatch: clearOnMatch, armed: true}
	return nil
}

func (t *Timer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = true
}

func (t *Timer) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enabled reports whether the counter is running
func (t *Timer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Elapsed returns the number of ticks counted since Configure
func (t *Timer) Elapsed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// next returns the armed channel with the lowest compare value above the
// counter. Channels sharing a compare value fire in channel order.
func (t *Timer) next() (core.TimerChannel, bool) {
	found := false
	var best core.TimerChannel
	for ch := core.Channel0; ch < core.NumChannels; ch++ {
		c := t.channels[ch]
		if !c.armed || c.ticks <= t.counter {
			continue
		}
		if !found || c.ticks < t.channels[best].ticks {
			best = ch
			found = true
		}
	}
	return best, found
}

// Step advances to the next compare match and runs the handler for it.
// It returns false if the timer is disabled or no channel can match.
func (t *Timer) Step() (bool, error) {
	t.mu.Lock()
	if t.handler == nil {
		t.mu.Unlock()
		return false, ErrNotConfigured
	}
	if !t.enabled {
		t.mu.Unlock()
		return false, nil
	}
	ch, ok := t.next()
	if !ok {
		t.mu.Unlock()
		return false, nil
	}
	c := t.channels[ch]
	t.elapsed += uint64(c.ticks - t.counter)
	t.counter = c.ticks
	if c.clearOnMatch {
		t.counter = 0
	}
	handler := t.handler
	t.mu.Unlock()

	// The handler may call Disable, so the timer lock is not held here
	core.RunInterrupt(func() { handler(ch) })
	return true, nil
}
