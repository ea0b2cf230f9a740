package core

import (
	"errors"
	"testing"
)

// mockUART implements drivers.UART over byte slices
type mockUART struct {
	rx       []byte
	tx       []byte
	holdRx   int // Buffered reports 0 for this many calls
	writeN   int // Bytes accepted per Write; -1 for all
	writeErr error
}

func (u *mockUART) Read(p []byte) (int, error) {
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *mockUART) Write(p []byte) (int, error) {
	if u.writeErr != nil {
		return 0, u.writeErr
	}
	n := len(p)
	if u.writeN >= 0 && u.writeN < n {
		n = u.writeN
	}
	u.tx = append(u.tx, p[:n]...)
	return n, nil
}

func (u *mockUART) Buffered() int {
	if u.holdRx > 0 {
		u.holdRx--
		return 0
	}
	return len(u.rx)
}

func TestUARTTransportReceiveWaits(t *testing.T) {
	uart := &mockUART{rx: []byte("AB"), holdRx: 3, writeN: -1}
	idles := 0
	tr := NewUARTTransport(uart, func() error {
		idles++
		return nil
	})

	b, err := tr.ReceiveByte()
	if err != nil {
		t.Fatalf("ReceiveByte failed: %v", err)
	}
	if b != 'A' {
		t.Errorf("Expected 'A', got %q", b)
	}
	if idles != 3 {
		t.Errorf("Expected 3 idle calls while nothing was buffered, got %d", idles)
	}

	b, _ = tr.ReceiveByte()
	if b != 'B' {
		t.Errorf("Expected 'B', got %q", b)
	}
}

func TestUARTTransportIdleError(t *testing.T) {
	closed := errors.New("link closed")
	tr := NewUARTTransport(&mockUART{writeN: -1}, func() error { return closed })

	if _, err := tr.ReceiveByte(); !errors.Is(err, closed) {
		t.Errorf("Expected idle error, got %v", err)
	}
}

func TestUARTTransportSendMessage(t *testing.T) {
	uart := &mockUART{writeN: -1}
	tr := NewUARTTransport(uart, nil)

	if err := SendMessage(tr, "data_ack\n"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if string(uart.tx) != "data_ack\n" {
		t.Errorf("Expected 'data_ack\\n' on the wire, got %q", uart.tx)
	}
}

func TestUARTTransportWriteErrors(t *testing.T) {
	fault := errors.New("tx error")
	tr := NewUARTTransport(&mockUART{writeErr: fault}, nil)
	if err := tr.SendByte('x'); !errors.Is(err, fault) {
		t.Errorf("Expected write fault, got %v", err)
	}

	tr = NewUARTTransport(&mockUART{writeN: 0}, nil)
	if err := tr.SendByte('x'); !errors.Is(err, ErrShortWrite) {
		t.Errorf("Expected ErrShortWrite, got %v", err)
	}
}

func TestSendMessageStopsOnError(t *testing.T) {
	fault := errors.New("stalled")
	tr := NewMockTransport(nil)
	tr.txErr = fault
	tr.txFailAt = 4

	if err := SendMessage(tr, "bootload_success\n"); !errors.Is(err, fault) {
		t.Errorf("Expected fault, got %v", err)
	}
	if tr.output() != "boot" {
		t.Errorf("Expected 4 bytes before the fault, got %q", tr.output())
	}
}

func TestSleepUntilBufferedRechecks(t *testing.T) {
	// The byte lands after ReceiveByte saw an empty FIFO but before the hook
	uart := &mockUART{rx: []byte("\n"), holdRx: 1, writeN: -1}
	sleeps := 0
	tr := NewUARTTransport(uart, SleepUntilBuffered(uart, func() { sleeps++ }))

	b, err := tr.ReceiveByte()
	if err != nil {
		t.Fatalf("ReceiveByte failed: %v", err)
	}
	if b != '\n' {
		t.Errorf("Expected newline, got %q", b)
	}
	if sleeps != 0 {
		t.Errorf("Slept %d times with a byte already buffered", sleeps)
	}
}

func TestSleepUntilBufferedMasksInterrupts(t *testing.T) {
	uart := &mockUART{rx: []byte("X"), holdRx: 2, writeN: -1}
	sleeps := 0
	masked := true
	tr := NewUARTTransport(uart, SleepUntilBuffered(uart, func() {
		sleeps++
		if interruptMu.TryLock() {
			interruptMu.Unlock()
			masked = false
		}
	}))

	if _, err := tr.ReceiveByte(); err != nil {
		t.Fatalf("ReceiveByte failed: %v", err)
	}
	if sleeps != 1 {
		t.Errorf("Expected one sleep, got %d", sleeps)
	}
	if !masked {
		t.Error("Sleep ran with interrupts enabled")
	}
	if !interruptMu.TryLock() {
		t.Fatal("Interrupts left masked after the hook returned")
	}
	interruptMu.Unlock()
}
