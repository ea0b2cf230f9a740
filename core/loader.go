package core

import (
	"threewire/protocol"
)

// Loader runs the foreground reception sequence and hands off to the bus
// serializer:
//
//  1. command line
//  2. protocol.ImageSize raw bytes
//  3. command line
//
// The bus pins and timer are set up in every case; the timer is only
// enabled if a BOOT3WB line was received in step 1 or 3.
type Loader struct {
	receiver *FrameReceiver
	bus      *BusSerializer
	command  *protocol.Buffer
	image    *protocol.Buffer
}

// NewLoader wires a receiver and serializer to their buffers
func NewLoader(receiver *FrameReceiver, bus *BusSerializer, command, image *protocol.Buffer) *Loader {
	return &Loader{
		receiver: receiver,
		bus:      bus,
		command:  command,
		image:    image,
	}
}

// Run blocks until all three reception steps complete, then arms the bus
// and starts it if boot was requested. It returns whether the bus was
// started. Errors are transport faults and are not recoverable.
func (l *Loader) Run() (bool, error) {
	steps := [...]Mode{
		LineDelimited(),
		FixedLength(protocol.ImageSize),
		LineDelimited(),
	}

	for i, mode := range steps {
		dst := l.command
		if mode.Kind == ModeFixedLength {
			dst = l.image
		}
		out, err := l.receiver.Receive(mode, dst)
		if err != nil {
			DebugPrintln("[LOADER] step " + itoa(i+1) + " failed: " + err.Error())
			return false, err
		}
		DebugPrintln("[LOADER] step " + itoa(i+1) + " done, bytes=" + itoa(out.Length))
	}

	if err := l.bus.InitPins(); err != nil {
		return false, err
	}
	if err := l.bus.Arm(); err != nil {
		return false, err
	}

	if !l.receiver.BootRequested() {
		DebugPrintln("[LOADER] no boot command, bus left armed")
		return false, nil
	}

	if err := l.bus.Start(); err != nil {
		return false, err
	}
	DebugPrintln("[LOADER] bus started")
	return true, nil
}

// Bus returns the loader's serializer
func (l *Loader) Bus() *BusSerializer {
	return l.bus
}
