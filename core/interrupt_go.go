//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// interruptMu stands in for the interrupt mask on regular Go, so that
// simulated interrupt handlers and foreground critical sections exclude
// each other
var interruptMu sync.Mutex

// disableInterrupts enters a critical section
func disableInterrupts() State {
	interruptMu.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	interruptMu.Unlock()
}

// RunInterrupt runs fn as if it were an interrupt handler
func RunInterrupt(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
