// Timer-driven three-wire bus serializer
// Drains the image buffer onto data/latch/clock lines, one bit per timer
// period, entirely from the compare interrupt handler.
package core

import (
	"errors"

	"threewire/protocol"
)

// BusState is the serializer lifecycle state
type BusState uint8

const (
	StateIdle BusState = iota
	StateArmed
	StateRunning
	StateDone
)

func (s BusState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// BusEvent is one of the four sub-events of a bit slot, in firing order
type BusEvent uint8

const (
	EventBitEmit   BusEvent = iota // Channel 0: drive data, advance cursor
	EventLatch                     // Channel 1: latch on 32-bit word boundary
	EventClockFall                 // Channel 2: clock active
	EventClockRise                 // Channel 3: clock idle, termination check
)

// eventForChannel maps a compare channel to its bus event
func eventForChannel(ch TimerChannel) (BusEvent, bool) {
	if ch >= NumChannels {
		return 0, false
	}
	return BusEvent(ch), true
}

// Line levels. The data line is inverted: a 0 bit drives it high.
const (
	levelIdle     = LevelHigh
	levelDataZero = LevelHigh
	levelDataOne  = LevelLow
	levelLatchOn  = LevelHigh
	levelLatchOff = LevelLow
	levelClockOn  = LevelLow
	levelClockOff = LevelHigh
	levelFinishOn = LevelLow
)

const (
	bitsPerByte   = 8
	bytesPerLatch = 4 // One latch pulse per 32-bit word
	clearChannel  = Channel3
)

var (
	ErrNotIdle  = errors.New("bus serializer must be idle to arm")
	ErrNotArmed = errors.New("bus serializer must be armed to start")
)

// busCursor is the serialization position within the image
type busCursor struct {
	byteIndex uint32
	bitIndex  uint8
}

// BusSerializer is the interrupt-driven bus state machine. After Start only
// the compare handler touches its state.
type BusSerializer struct {
	gpio      GPIODriver
	timer     CompareTimer
	transport ByteTransport
	image     *protocol.Buffer
	cfg       BusConfig

	state  BusState
	cursor busCursor
	err    error // First GPIO/transport error seen by the handler
}

// NewBusSerializer creates a serializer in StateIdle
func NewBusSerializer(gpio GPIODriver, timer CompareTimer, transport ByteTransport, image *protocol.Buffer, cfg BusConfig) *BusSerializer {
	return &BusSerializer{
		gpio:      gpio,
		timer:     timer,
		transport: transport,
		image:     image,
		cfg:       cfg,
		state:     StateIdle,
	}
}

// InitPins configures the four bus lines as outputs, all driven high
func (s *BusSerializer) InitPins() error {
	pins := [...]GPIOPin{s.cfg.Pins.Data, s.cfg.Pins.Latch, s.cfg.Pins.Clock, s.cfg.Pins.Finish}
	for _, pin := range pins {
		if err := s.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
		if err := s.gpio.SetPin(pin, levelIdle); err != nil {
			return err
		}
	}
	return nil
}

// Arm programs the four compare channels and resets the cursor.
// Channel 3 sits at the period and restarts the counter.
func (s *BusSerializer) Arm() error {
	if s.state != StateIdle {
		return ErrNotIdle
	}
	if err := s.cfg.Validate(s.image.Cap()); err != nil {
		return err
	}

	freq := s.timer.Frequency()
	period := TicksFromMS(freq, s.cfg.PeriodMS())
	if err := s.timer.Configure(period, s.HandleCompare); err != nil {
		return err
	}

	for ch := Channel0; ch < NumChannels; ch++ {
		ticks := TicksFromMS(freq, s.cfg.EventOffsetsMS[ch])
		if err := s.timer.ArmChannel(ch, ticks, ch == clearChannel); err != nil {
			return err
		}
	}

	s.cursor = busCursor{}
	s.err = nil
	s.state = StateArmed

	DebugPrintln("[BUS] armed, period_ticks=" + utoa(period) +
		" terminal=" + utoa(s.cfg.TerminalCount))
	return nil
}

// Start enables the timer. All further work happens in HandleCompare.
func (s *BusSerializer) Start() error {
	if s.state != StateArmed {
		return ErrNotArmed
	}
	s.state = StateRunning
	s.timer.Enable()
	return nil
}

// HandleCompare is the CompareHandler registered with the timer
func (s *BusSerializer) HandleCompare(ch TimerChannel) {
	ev, ok := eventForChannel(ch)
	if !ok {
		return
	}
	s.HandleEvent(ev)
}

// HandleEvent runs one bus event. Events outside StateRunning are ignored.
func (s *BusSerializer) HandleEvent(ev BusEvent) {
	if s.state != StateRunning {
		return
	}

	RecordTrace(ev, s.cursor.byteIndex, s.cursor.bitIndex)

	switch ev {
	case EventBitEmit:
		s.emitBit()
	case EventLatch:
		s.latch()
	case EventClockFall:
		s.clockFall()
	case EventClockRise:
		s.clockRise()
	}
}

func (s *BusSerializer) emitBit() {
	cur := s.image.At(int(s.cursor.byteIndex))
	level := levelDataZero
	if (cur>>s.cursor.bitIndex)&1 != 0 {
		level = levelDataOne
	}
	s.setPin(s.cfg.Pins.Data, level)

	s.cursor.bitIndex++
	if s.cursor.bitIndex == bitsPerByte {
		s.cursor.bitIndex = 0
		s.cursor.byteIndex++
	}
}

// latch runs after emitBit has advanced, so a (4n, 0) cursor means a full
// 32-bit word was just shifted out
func (s *BusSerializer) latch() {
	if s.cursor.bitIndex == 0 && s.cursor.byteIndex%bytesPerLatch == 0 {
		s.setPin(s.cfg.Pins.Latch, levelLatchOn)
	} else {
		s.setPin(s.cfg.Pins.Latch, levelLatchOff)
	}
}

func (s *BusSerializer) clockFall() {
	s.setPin(s.cfg.Pins.Clock, levelClockOn)
}

// clockRise completes the clock pulse and finishes the run once the
// terminal byte count is reached. The success message is written from
// interrupt context and blocks the handler until the transport accepts it.
func (s *BusSerializer) clockRise() {
	s.setPin(s.cfg.Pins.Clock, levelClockOff)

	if s.cursor.byteIndex != s.cfg.TerminalCount {
		return
	}

	s.setPin(s.cfg.Pins.Finish, levelFinishOn)
	if err := SendMessage(s.transport, protocol.ReplyBootSuccess); err != nil && s.err == nil {
		s.err = err
	}
	s.timer.Disable()
	s.state = StateDone
}

func (s *BusSerializer) setPin(pin GPIOPin, level bool) {
	if err := s.gpio.SetPin(pin, level); err != nil && s.err == nil {
		s.err = err
	}
}

// State returns the current state. Safe to call from the foreground.
func (s *BusSerializer) State() BusState {
	st := disableInterrupts()
	defer restoreInterrupts(st)
	return s.state
}

// Position returns the cursor. Safe to call from the foreground.
func (s *BusSerializer) Position() (byteIndex uint32, bitIndex uint8) {
	st := disableInterrupts()
	defer restoreInterrupts(st)
	return s.cursor.byteIndex, s.cursor.bitIndex
}

// Err returns the first error the handler hit, if any
func (s *BusSerializer) Err() error {
	st := disableInterrupts()
	defer restoreInterrupts(st)
	return s.err
}

// Config returns the serializer configuration
func (s *BusSerializer) Config() BusConfig {
	return s.cfg
}
