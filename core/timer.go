package core

// Timer frequencies for supported MCUs
const (
	TimerFreqNRF52  = 1000000 // TIMER0 with prescaler 4
	TimerFreqRP2040 = 1000000 // 1MHz system timer
)

// TicksFromMS converts milliseconds to ticks of a timer running at freq Hz
func TicksFromMS(freq, ms uint32) uint32 {
	return uint32(uint64(ms) * uint64(freq) / 1000)
}
