package core

import "errors"

// BusPins are the four output lines driven by the serializer
type BusPins struct {
	Data   GPIOPin
	Latch  GPIOPin
	Clock  GPIOPin
	Finish GPIOPin
}

// BusConfig holds the serializer wiring and timing
type BusConfig struct {
	Pins BusPins

	// EventOffsetsMS are the compare offsets of the four events within one
	// period. The last offset is also the period length.
	EventOffsetsMS [NumChannels]uint32

	// TerminalCount is the byte index at which serialization completes
	TerminalCount uint32
}

// DefaultTerminalCount stops after the first 64 image bytes (32*2)
const DefaultTerminalCount = 32 * 2

var (
	ErrOffsetOrder   = errors.New("event offsets must be non-zero and strictly increasing")
	ErrPinConflict   = errors.New("bus pins must be distinct")
	ErrTerminalCount = errors.New("terminal count outside image capacity")
)

// DefaultBusConfig returns the nRF52 DK wiring (LED1-LED4) with 100ms spacing
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Pins: BusPins{
			Data:   13,
			Latch:  14,
			Clock:  15,
			Finish: 16,
		},
		EventOffsetsMS: [NumChannels]uint32{100, 200, 300, 400},
		TerminalCount:  DefaultTerminalCount,
	}
}

// PeriodMS returns the length of one bit slot
func (c BusConfig) PeriodMS() uint32 {
	return c.EventOffsetsMS[NumChannels-1]
}

// Validate checks the configuration against an image buffer of imageCap bytes
func (c BusConfig) Validate(imageCap int) error {
	prev := uint32(0)
	for _, off := range c.EventOffsetsMS {
		if off <= prev {
			return ErrOffsetOrder
		}
		prev = off
	}

	pins := [...]GPIOPin{c.Pins.Data, c.Pins.Latch, c.Pins.Clock, c.Pins.Finish}
	for i := range pins {
		for j := i + 1; j < len(pins); j++ {
			if pins[i] == pins[j] {
				return ErrPinConflict
			}
		}
	}

	if c.TerminalCount == 0 || uint64(c.TerminalCount) > uint64(imageCap) {
		return ErrTerminalCount
	}
	return nil
}
