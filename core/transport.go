package core

import (
	"errors"

	"tinygo.org/x/drivers"
)

// ByteTransport is the byte-level serial link to the host.
// Both calls block until the byte has been transferred.
type ByteTransport interface {
	// SendByte blocks until b is accepted by the transmit path
	SendByte(b byte) error

	// ReceiveByte blocks until one byte is available and returns it
	ReceiveByte() (byte, error)
}

// SleepUntilBuffered returns an idle hook that calls sleep only if uart
// still has nothing buffered once interrupts are masked. A receive interrupt
// raised after the check stays pending and ends the sleep, so the byte is
// never left waiting for an unrelated wakeup.
func SleepUntilBuffered(uart drivers.UART, sleep func()) func() error {
	return func() error {
		state := disableInterrupts()
		if uart.Buffered() == 0 {
			sleep()
		}
		restoreInterrupts(state)
		return nil
	}
}

// ErrShortWrite is returned when the UART accepts no byte on a write
var ErrShortWrite = errors.New("uart accepted no data")

// UARTTransport adapts a drivers.UART (machine.UART on hardware) to a
// blocking ByteTransport. Idle is called while waiting for receive data and
// defaults to a no-op spin. An error from idle abandons the wait.
type UARTTransport struct {
	uart drivers.UART
	idle func() error

	rx [1]byte
	tx [1]byte
}

// NewUARTTransport creates a transport over uart. idle may be nil.
func NewUARTTransport(uart drivers.UART, idle func() error) *UARTTransport {
	if idle == nil {
		idle = func() error { return nil }
	}
	return &UARTTransport{
		uart: uart,
		idle: idle,
	}
}

// ReceiveByte blocks until the UART has a byte buffered. There is no timeout.
func (t *UARTTransport) ReceiveByte() (byte, error) {
	for {
		if t.uart.Buffered() == 0 {
			if err := t.idle(); err != nil {
				return 0, err
			}
			continue
		}
		n, err := t.uart.Read(t.rx[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return t.rx[0], nil
		}
	}
}

// SendByte writes one byte. Writes on machine.UART block until the byte is
// in the transmit register.
func (t *UARTTransport) SendByte(b byte) error {
	t.tx[0] = b
	n, err := t.uart.Write(t.tx[:])
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrShortWrite
	}
	return nil
}

// SendMessage writes msg byte by byte, stopping at the first error
func SendMessage(t ByteTransport, msg string) error {
	for i := 0; i < len(msg); i++ {
		if err := t.SendByte(msg[i]); err != nil {
			return err
		}
	}
	return nil
}
