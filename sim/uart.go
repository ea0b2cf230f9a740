// Package sim runs the loader firmware on the host. The core package is
// driven unchanged through simulated UART, GPIO and compare timer
// peripherals, so that host tools can be exercised without a board.
package sim

import (
	"io"
	"sync"

	"threewire/protocol"
)

// UART is a simulated serial peripheral. The device side implements
// drivers.UART with a fixed receive FIFO like the hardware; the host side is
// returned by Host.
type UART struct {
	mu     sync.Mutex
	cond   *sync.Cond
	rx     *protocol.FifoBuffer // host -> device
	tx     []byte               // device -> host
	closed bool
}

// NewUART creates a UART with a receive FIFO of protocol.UARTRxBufferSize
func NewUART() *UART {
	u := &UART{
		// One slot of a FifoBuffer is kept free to tell full from empty
		rx: protocol.NewFifoBuffer(protocol.UARTRxBufferSize + 1),
	}
	u.cond = sync.NewCond(&u.mu)
	return u
}

// Read returns buffered receive data without blocking, like machine.UART
func (u *UART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := u.rx.Read(p)
	if n == 0 && u.closed {
		return 0, io.ErrClosedPipe
	}
	if n > 0 {
		u.cond.Broadcast()
	}
	return n, nil
}

// Write queues device output for the host
func (u *UART) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return 0, io.ErrClosedPipe
	}
	u.tx = append(u.tx, p...)
	u.cond.Broadcast()
	return len(p), nil
}

// Buffered returns the number of bytes in the receive FIFO
func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rx.Available()
}

// WaitRx blocks until receive data is buffered. It returns
// io.ErrClosedPipe once the link is closed and the FIFO has drained, and is
// used as the transport idle hook in place of WFI.
func (u *UART) WaitRx() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for u.rx.IsEmpty() {
		if u.closed {
			return io.ErrClosedPipe
		}
		u.cond.Wait()
	}
	return nil
}

// Close shuts down both directions and wakes all waiters
func (u *UART) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed = true
	u.cond.Broadcast()
	return nil
}

// Host returns the host end of the link
func (u *UART) Host() io.ReadWriteCloser {
	return hostPort{u}
}

// hostPort is the PC side of a simulated UART
type hostPort struct {
	u *UART
}

// Read blocks until the device has written something
func (h hostPort) Read(p []byte) (int, error) {
	u := h.u
	u.mu.Lock()
	defer u.mu.Unlock()

	for len(u.tx) == 0 {
		if u.closed {
			return 0, io.EOF
		}
		u.cond.Wait()
	}
	n := copy(p, u.tx)
	u.tx = u.tx[n:]
	return n, nil
}

// Write feeds the device receive FIFO, blocking while it is full
func (h hostPort) Write(p []byte) (int, error) {
	u := h.u
	u.mu.Lock()
	defer u.mu.Unlock()

	written := 0
	for written < len(p) {
		if u.closed {
			return written, io.ErrClosedPipe
		}
		n := u.rx.Write(p[written:])
		if n == 0 {
			u.cond.Wait()
			continue
		}
		written += n
		u.cond.Broadcast()
	}
	return written, nil
}

func (h hostPort) Close() error {
	return h.u.Close()
}
