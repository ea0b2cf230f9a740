//go:build nrf52 || nrf52840 || nrf52833

package main

import (
	"device/nrf"
	"errors"
	"runtime/interrupt"

	"threewire/core"
)

// TIMER0 settings: 16MHz / 2^4 = 1MHz, 32-bit counter
const (
	timer0Prescaler = 4
	timer0Priority  = 0xc0
)

var errChannel = errors.New("TIMER0 compare channel out of range")

// timer0 is the instance served by the TIMER0 interrupt
var timer0 *Timer0

// Timer0 implements core.CompareTimer on the nRF52 TIMER0 peripheral.
// CC[0..3] hold the event offsets; the COMPARE3_CLEAR short restarts the
// counter at the end of each period.
type Timer0 struct {
	handler core.CompareHandler
	intr    interrupt.Interrupt
}

// NewTimer0 returns the TIMER0 driver. There is only one TIMER0.
func NewTimer0() *Timer0 {
	if timer0 == nil {
		timer0 = &Timer0{}
	}
	return timer0
}

func (t *Timer0) Frequency() uint32 {
	return core.TimerFreqNRF52
}

func (t *Timer0) Configure(periodTicks uint32, handler core.CompareHandler) error {
	nrf.TIMER0.TASKS_STOP.Set(1)
	nrf.TIMER0.TASKS_CLEAR.Set(1)
	nrf.TIMER0.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	nrf.TIMER0.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	nrf.TIMER0.PRESCALER.Set(timer0Prescaler)
	nrf.TIMER0.SHORTS.Set(0)
	nrf.TIMER0.INTENCLR.Set(0xffffffff)

	t.handler = handler
	t.intr = interrupt.New(nrf.IRQ_TIMER0, handleTimer0)
	t.intr.SetPriority(timer0Priority)
	t.intr.Enable()
	return nil
}

func (t *Timer0) ArmChannel(ch core.TimerChannel, ticks uint32, clearOnMatch bool) error {
	if ch >= core.NumChannels {
		return errChannel
	}
	nrf.TIMER0.CC[ch].Set(ticks)
	nrf.TIMER0.EVENTS_COMPARE[ch].Set(0)
	nrf.TIMER0.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk << ch)
	if clearOnMatch {
		nrf.TIMER0.SHORTS.SetBits(nrf.TIMER_SHORTS_COMPARE0_CLEAR_Msk << ch)
	}
	return nil
}

func (t *Timer0) Enable() {
	nrf.TIMER0.TASKS_START.Set(1)
}

// Disable stops the counter and masks the compare interrupts. Safe to call
// from the handler.
func (t *Timer0) Disable() {
	nrf.TIMER0.TASKS_STOP.Set(1)
	nrf.TIMER0.INTENCLR.Set(0xffffffff)
}

// handleTimer0 dispatches every pending compare event in channel order
func handleTimer0(interrupt.Interrupt) {
	t := timer0
	for ch := core.Channel0; ch < core.NumChannels; ch++ {
		if nrf.TIMER0.EVENTS_COMPARE[ch].Get() == 0 {
			continue
		}
		nrf.TIMER0.EVENTS_COMPARE[ch].Set(0)
		if t != nil && t.handler != nil {
			t.handler(ch)
		}
	}
}
