//go:build rp2040

package main

import (
	"machine"

	"threewire/core"
	"threewire/targets/board"
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	board.Run(uart, NewAlarmTimer(), busConfig())
}

// busConfig uses GPIO13-16, the same numbers as the nRF52 DK wiring
func busConfig() core.BusConfig {
	return core.DefaultBusConfig()
}
