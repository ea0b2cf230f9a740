package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one bus event for post-mortem analysis
type TraceEvent struct {
	Seq       uint32   // Running event number, starting at 1
	Event     BusEvent // Event that fired
	ByteIndex uint32   // Cursor before the event ran
	BitIndex  uint8
}

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Trace ring buffer (non-blocking, safe from interrupt context)
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
	traceSeq      uint32
	traceEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, RTT, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetTraceEnabled turns bus event capture on or off
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// RecordTrace captures a bus event in the ring buffer.
// Never blocks or allocates.
func RecordTrace(ev BusEvent, byteIndex uint32, bitIndex uint8) {
	if !traceEnabled {
		return
	}
	traceSeq++
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		Seq:       traceSeq,
		Event:     ev,
		ByteIndex: byteIndex,
		BitIndex:  bitIndex,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// TraceSnapshot returns the captured events from oldest to newest
func TraceSnapshot() []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	events := make([]TraceEvent, 0, TraceRingSize)
	start := traceRingHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.Seq == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// DumpTrace outputs the trace ring through the debug writer
func DumpTrace() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Bus Trace Dump ===")
	for _, evt := range TraceSnapshot() {
		debugPrintln("[TRACE] #" + utoa(evt.Seq) + " " + eventName(evt.Event) +
			" byte=" + utoa(evt.ByteIndex) +
			" bit=" + itoa(int(evt.BitIndex)))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
	traceSeq = 0
}

func eventName(ev BusEvent) string {
	switch ev {
	case EventBitEmit:
		return "BIT"
	case EventLatch:
		return "LATCH"
	case EventClockFall:
		return "CLK_FALL"
	case EventClockRise:
		return "CLK_RISE"
	default:
		return "UNKNOWN"
	}
}
