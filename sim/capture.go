package sim

import (
	"sync"

	"threewire/core"
)

// Capture decodes the three-wire bus from pin writes, the way a receiving
// device would: data is sampled on every rising clock edge (inverted, LSB
// first) and latch pulses are counted on rising latch edges.
type Capture struct {
	pins core.BusPins

	mu       sync.Mutex
	seen     map[core.GPIOPin]bool
	level    map[core.GPIOPin]bool
	bytes    []byte
	cur      byte
	nbits    uint
	latches  int
	finished bool
}

// NewCapture creates a decoder for the given wiring
func NewCapture(pins core.BusPins) *Capture {
	return &Capture{
		pins:  pins,
		seen:  make(map[core.GPIOPin]bool),
		level: make(map[core.GPIOPin]bool),
	}
}

// Attach installs the capture as g's observer
func (c *Capture) Attach(g *GPIO) {
	g.Observe(c.Observe)
}

// Observe feeds one pin write into the decoder
func (c *Capture) Observe(w PinWrite) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, known := c.level[w.Pin], c.seen[w.Pin]
	c.level[w.Pin] = w.Level
	c.seen[w.Pin] = true
	rising := known && !prev && w.Level

	switch w.Pin {
	case c.pins.Clock:
		if !rising {
			return
		}
		// Data line is active low
		if !c.level[c.pins.Data] {
			c.cur |= 1 << c.nbits
		}
		c.nbits++
		if c.nbits == 8 {
			c.bytes = append(c.bytes, c.cur)
			c.cur, c.nbits = 0, 0
		}
	case c.pins.Latch:
		if rising {
			c.latches++
		}
	case c.pins.Finish:
		if known && prev && !w.Level {
			c.finished = true
		}
	}
}

// Bytes returns the completed bytes shifted out so far
func (c *Capture) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.bytes))
	copy(out, c.bytes)
	return out
}

// Latches returns the number of latch pulses seen
func (c *Capture) Latches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latches
}

// Finished reports whether the finish line has been asserted
func (c *Capture) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}
