package core

// TimerChannel identifies one compare channel of a CompareTimer
type TimerChannel uint8

// Compare channels used by the bus serializer
const (
	Channel0 TimerChannel = iota
	Channel1
	Channel2
	Channel3

	NumChannels = 4
)

// CompareHandler is invoked from interrupt context with the channel that fired
type CompareHandler func(ch TimerChannel)

// CompareTimer is a free-running counter with independent compare channels.
// Platform-specific implementations program the hardware timer.
type CompareTimer interface {
	// Frequency returns the counter rate in Hz
	Frequency() uint32

	// Configure sets the period and registers the compare handler.
	// The timer is left disabled.
	Configure(periodTicks uint32, handler CompareHandler) error

	// ArmChannel arms ch to fire when the counter reaches ticks.
	// If clearOnMatch is set the counter restarts from zero on that match.
	ArmChannel(ch TimerChannel, ticks uint32, clearOnMatch bool) error

	// Enable starts the counter
	Enable()

	// Disable stops the counter; no further compare events fire
	Disable()
}
