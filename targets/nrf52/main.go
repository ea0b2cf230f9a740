//go:build nrf52 || nrf52840 || nrf52833

package main

import (
	"machine"

	"threewire/core"
	"threewire/targets/board"
)

func main() {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART_TX_PIN,
		RX:       machine.UART_RX_PIN,
	})

	board.Run(uart, NewTimer0(), busConfig())
}

// busConfig drives the four DK LEDs, which are active low
func busConfig() core.BusConfig {
	return core.DefaultBusConfig()
}
