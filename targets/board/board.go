//go:build tinygo && cortexm

// Package board holds the bring-up shared by all loader boards: buffers,
// transport, loader and the idle loop. Chip packages supply the UART and
// the compare timer.
package board

import (
	"device/arm"
	"errors"

	"tinygo.org/x/drivers"

	"threewire/core"
	"threewire/protocol"
)

var errPinNotConfigured = errors.New("pin not configured as output")

// Statically allocated so the image does not come from the heap
var (
	imageStorage   [protocol.ImageSize]byte
	commandStorage [protocol.CommandBufferSize]byte
)

// wfi sleeps until an interrupt is pending. With interrupts masked a
// pending interrupt still wakes the core.
func wfi() {
	arm.Asm("wfi")
}

// Run receives the image, starts the bus if requested and then idles
// forever; the bus runs from the timer interrupt. It never returns.
func Run(uart drivers.UART, timer core.CompareTimer, cfg core.BusConfig) {
	transport := core.NewUARTTransport(uart, core.SleepUntilBuffered(uart, wfi))
	image := protocol.NewBuffer(imageStorage[:])
	command := protocol.NewBuffer(commandStorage[:])

	receiver := core.NewFrameReceiver(transport)
	bus := core.NewBusSerializer(NewGPIODriver(), timer, transport, image, cfg)
	loader := core.NewLoader(receiver, bus, command, image)

	if _, err := loader.Run(); err != nil {
		core.DebugPrintln("[BOARD] loader failed: " + err.Error())
		core.DumpTrace()
	}

	for {
		wfi()
	}
}
