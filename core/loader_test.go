package core

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"threewire/protocol"
)

type loaderFixture struct {
	gpio    *MockGPIODriver
	timer   *MockCompareTimer
	tr      *MockTransport
	image   *protocol.Buffer
	loader  *Loader
	payload []byte
}

func newLoaderFixture(first, second string) *loaderFixture {
	payload := make([]byte, protocol.ImageSize)
	for i := range payload {
		payload[i] = byte(i ^ (i >> 8))
	}

	var input []byte
	input = append(input, first...)
	input = append(input, payload...)
	input = append(input, second...)

	f := &loaderFixture{
		gpio:    NewMockGPIODriver(),
		timer:   NewMockCompareTimer(TimerFreqNRF52),
		tr:      NewMockTransport(input),
		image:   newImageBuffer(),
		payload: payload,
	}

	receiver := NewFrameReceiver(f.tr)
	bus := NewBusSerializer(f.gpio, f.timer, f.tr, f.image, DefaultBusConfig())
	f.loader = NewLoader(receiver, bus, newCommandBuffer(), f.image)
	return f
}

func TestLoaderBootSequence(t *testing.T) {
	f := newLoaderFixture(protocol.CommandTransfer, protocol.CommandBoot)

	started, err := f.loader.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !started {
		t.Fatal("Expected the bus to start after BOOT3WB")
	}

	want := protocol.ReplyTransferStarted + protocol.ReplyDataAck + protocol.ReplyBootStarted
	if f.tr.output() != want {
		t.Errorf("Replies = %q, want %q", f.tr.output(), want)
	}
	if !bytes.Equal(f.image.Bytes(), f.payload) {
		t.Error("Image buffer does not hold the payload")
	}
	if f.loader.Bus().State() != StateRunning || !f.timer.enabled {
		t.Errorf("Bus state %v, timer enabled %v", f.loader.Bus().State(), f.timer.enabled)
	}

	// Drive the bus to completion
	for f.timer.enabled {
		f.timer.firePeriod()
	}
	if f.loader.Bus().State() != StateDone {
		t.Errorf("Expected done, got %v", f.loader.Bus().State())
	}
	if f.tr.output() != want+protocol.ReplyBootSuccess {
		t.Errorf("Missing success reply, got %q", f.tr.output())
	}
}

func TestLoaderBootInFirstCommand(t *testing.T) {
	f := newLoaderFixture(protocol.CommandBoot, "NOPE\n")

	started, err := f.loader.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !started {
		t.Error("BOOT3WB in the first step should also start the bus")
	}
}

func TestLoaderWithoutBoot(t *testing.T) {
	f := newLoaderFixture(protocol.CommandTransfer, protocol.CommandTransfer)

	started, err := f.loader.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if started {
		t.Error("Bus must not start without BOOT3WB")
	}
	if f.loader.Bus().State() != StateArmed {
		t.Errorf("Bus should be left armed, got %v", f.loader.Bus().State())
	}
	if f.timer.enabled || f.timer.enables != 0 {
		t.Error("Timer must not be enabled")
	}
	if !f.gpio.configured[DefaultBusConfig().Pins.Data] {
		t.Error("Pins should be initialized even without boot")
	}
}

func TestLoaderTransportFault(t *testing.T) {
	f := newLoaderFixture(protocol.CommandTransfer, "")
	fault := errors.New("overrun")
	f.tr.rxErr = fault

	started, err := f.loader.Run()
	if !errors.Is(err, fault) {
		t.Fatalf("Expected transport fault, got %v", err)
	}
	if started {
		t.Error("Bus must not start after a fault")
	}
	if f.loader.Bus().State() != StateIdle {
		t.Errorf("Bus should stay idle after a fault, got %v", f.loader.Bus().State())
	}
}

func TestLoaderShortPayload(t *testing.T) {
	tr := NewMockTransport(append([]byte(protocol.CommandTransfer), 1, 2, 3))
	receiver := NewFrameReceiver(tr)
	image := newImageBuffer()
	bus := NewBusSerializer(NewMockGPIODriver(), NewMockCompareTimer(TimerFreqNRF52), tr, image, DefaultBusConfig())
	loader := NewLoader(receiver, bus, newCommandBuffer(), image)

	if _, err := loader.Run(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF for a truncated payload, got %v", err)
	}
	if tr.output() != protocol.ReplyTransferStarted {
		t.Errorf("Only transfer_started expected, got %q", tr.output())
	}
}
