//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// RunInterrupt runs fn with interrupts masked
func RunInterrupt(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
