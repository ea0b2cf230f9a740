//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"threewire/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14 // Alarm 1 target, low 32 bits
	timerARMED    = timerBase + 0x20 // Write 1 to disarm
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE     = timerBase + 0x38 // Interrupt enable

	// Alarm 0 belongs to the TinyGo runtime
	alarmBit = 1 << 1
)

var (
	timerAlarm = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerArmed = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntR  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerIntE  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

var errChannel = errors.New("alarm compare channel out of range")

// alarm is the instance served by the TIMER_IRQ_1 interrupt
var alarm *AlarmTimer

// AlarmTimer implements core.CompareTimer on one alarm of the 1MHz system
// timer. The counter cannot be cleared, so channel offsets are kept relative
// to a period base that moves forward each time a clearing channel fires.
// Only one alarm is pending at a time: the next channel in order.
type AlarmTimer struct {
	handler core.CompareHandler
	intr    interrupt.Interrupt

	offsets [core.NumChannels]uint32
	clears  [core.NumChannels]bool
	armed   [core.NumChannels]bool

	base    uint32
	next    core.TimerChannel
	running bool
}

// NewAlarmTimer returns the alarm driver. There is only one.
func NewAlarmTimer() *AlarmTimer {
	if alarm == nil {
		alarm = &AlarmTimer{}
	}
	return alarm
}

// GetHardwareTime reads the low 32 bits of the microsecond counter
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

func (t *AlarmTimer) Frequency() uint32 {
	return core.TimerFreqRP2040
}

func (t *AlarmTimer) Configure(periodTicks uint32, handler core.CompareHandler) error {
	t.Disable()
	t.handler = handler
	t.intr = interrupt.New(rp.IRQ_TIMER_IRQ_1, handleAlarm)
	t.intr.Enable()
	return nil
}

func (t *AlarmTimer) ArmChannel(ch core.TimerChannel, ticks uint32, clearOnMatch bool) error {
	if ch >= core.NumChannels {
		return errChannel
	}
	t.offsets[ch] = ticks
	t.clears[ch] = clearOnMatch
	t.armed[ch] = true
	return nil
}

// Enable starts a period now, beginning with the first armed channel
func (t *AlarmTimer) Enable() {
	t.base = GetHardwareTime()
	t.next = core.NumChannels - 1
	t.running = true
	t.advance()
	timerIntE.SetBits(alarmBit)
}

// Disable disarms the alarm. Safe to call from the handler.
func (t *AlarmTimer) Disable() {
	t.running = false
	timerIntE.ClearBits(alarmBit)
	timerArmed.Set(alarmBit)
	timerIntR.Set(alarmBit)
}

// advance selects the channel after t.next and programs its target
func (t *AlarmTimer) advance() {
	for i := 0; i < core.NumChannels; i++ {
		t.next = (t.next + 1) % core.NumChannels
		if t.armed[t.next] {
			timerAlarm.Set(t.base + t.offsets[t.next])
			return
		}
	}
	t.running = false
}

// handleAlarm runs the due channel and arms the following one
func handleAlarm(interrupt.Interrupt) {
	timerIntR.Set(alarmBit)
	t := alarm
	if t == nil || !t.running {
		return
	}

	ch := t.next
	if t.clears[ch] {
		t.base += t.offsets[ch]
	}
	if t.handler != nil {
		t.handler(ch)
	}
	if t.running {
		t.advance()
	}
}
