package core

import (
	"errors"
	"io"
)

// pinWrite is one SetPin call seen by MockGPIODriver
type pinWrite struct {
	Pin   GPIOPin
	Level bool
}

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	pins       map[GPIOPin]bool
	configured map[GPIOPin]bool
	writes     []pinWrite
	failPin    GPIOPin
	failErr    error
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:       make(map[GPIOPin]bool),
		configured: make(map[GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.configured[pin] = true
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	if m.failErr != nil && pin == m.failPin {
		return m.failErr
	}
	m.pins[pin] = value
	m.writes = append(m.writes, pinWrite{Pin: pin, Level: value})
	return nil
}

func (m *MockGPIODriver) GetPin(pin GPIOPin) (bool, error) {
	return m.pins[pin], nil
}

// writesTo returns the levels written to pin, in order
func (m *MockGPIODriver) writesTo(pin GPIOPin) []bool {
	var levels []bool
	for _, w := range m.writes {
		if w.Pin == pin {
			levels = append(levels, w.Level)
		}
	}
	return levels
}

type armedChannel struct {
	Ticks        uint32
	ClearOnMatch bool
	Armed        bool
}

// MockCompareTimer records configuration and lets tests fire channels
type MockCompareTimer struct {
	freq     uint32
	period   uint32
	handler  CompareHandler
	channels [NumChannels]armedChannel
	enabled  bool
	enables  int
	disables int
}

func NewMockCompareTimer(freq uint32) *MockCompareTimer {
	return &MockCompareTimer{freq: freq}
}

func (m *MockCompareTimer) Frequency() uint32 { return m.freq }

func (m *MockCompareTimer) Configure(periodTicks uint32, handler CompareHandler) error {
	m.period = periodTicks
	m.handler = handler
	return nil
}

func (m *MockCompareTimer) ArmChannel(ch TimerChannel, ticks uint32, clearOnMatch bool) error {
	if ch >= NumChannels {
		return errors.New("bad channel")
	}
	m.channels[ch] = armedChannel{Ticks: ticks, ClearOnMatch: clearOnMatch, Armed: true}
	return nil
}

func (m *MockCompareTimer) Enable() {
	m.enabled = true
	m.enables++
}

func (m *MockCompareTimer) Disable() {
	m.enabled = false
	m.disables++
}

// firePeriod fires all four channels in offset order if the timer is enabled
func (m *MockCompareTimer) firePeriod() {
	for ch := Channel0; ch < NumChannels; ch++ {
		if !m.enabled {
			return
		}
		m.handler(ch)
	}
}

// MockTransport replays scripted input and records output
type MockTransport struct {
	rx       []byte
	rxPos    int
	tx       []byte
	txAtRx   []int // rxPos at the time each tx byte was sent
	rxErr    error
	txErr    error
	txFailAt int
}

func NewMockTransport(input []byte) *MockTransport {
	return &MockTransport{rx: input, txFailAt: -1}
}

func (m *MockTransport) ReceiveByte() (byte, error) {
	if m.rxPos >= len(m.rx) {
		if m.rxErr != nil {
			return 0, m.rxErr
		}
		return 0, io.EOF
	}
	b := m.rx[m.rxPos]
	m.rxPos++
	return b, nil
}

func (m *MockTransport) SendByte(b byte) error {
	if m.txErr != nil && len(m.tx) == m.txFailAt {
		return m.txErr
	}
	m.tx = append(m.tx, b)
	m.txAtRx = append(m.txAtRx, m.rxPos)
	return nil
}

func (m *MockTransport) output() string {
	return string(m.tx)
}
