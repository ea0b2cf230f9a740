package sim

import (
	"fmt"
	"sync"

	"threewire/core"
)

// PinWrite is one recorded SetPin call
type PinWrite struct {
	Pin   core.GPIOPin
	Level bool
}

// GPIO is a recording core.GPIODriver. An optional observer sees every write
// as it happens, which is how Capture decodes the bus.
type GPIO struct {
	mu       sync.Mutex
	levels   map[core.GPIOPin]bool
	outputs  map[core.GPIOPin]bool
	history  []PinWrite
	observer func(PinWrite)
}

// NewGPIO creates a GPIO with no pins configured
func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

// Observe installs fn as the write observer; nil removes it
func (g *GPIO) Observe(fn func(PinWrite)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observer = fn
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = true
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	if !g.outputs[pin] {
		g.mu.Unlock()
		return fmt.Errorf("pin %d is not configured as output", pin)
	}
	g.levels[pin] = value
	w := PinWrite{Pin: pin, Level: value}
	g.history = append(g.history, w)
	observer := g.observer
	g.mu.Unlock()

	if observer != nil {
		observer(w)
	}
	return nil
}

func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin], nil
}

// History returns a copy of all writes so far
func (g *GPIO) History() []PinWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PinWrite, len(g.history))
	copy(out, g.history)
	return out
}
