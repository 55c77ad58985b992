package avr8

import "avrio/core"

// Timer1 control bits
const (
	WGM12  = 1 << 3 // TCCR1B: clear timer on compare match (CTC)
	CS11   = 1 << 1 // TCCR1B: clock / 8
	OCIE1A = 1 << 1 // TIMSK1: output compare A match interrupt enable
)

// Prescaler is the Timer1 input clock divider selected by CS11
const Prescaler = 8

// TimerRegisters are the Timer1 registers used for the millisecond tick
type TimerRegisters struct {
	TCCRB Register8 // TCCR1B
	OCRAH Register8 // OCR1AH
	OCRAL Register8 // OCR1AL
	TIMSK Register8 // TIMSK1
}

// CompareThreshold returns the compare value giving one match per millisecond
func CompareThreshold(clockHz, prescaler uint32) uint16 {
	return uint16((clockHz / 1000) / prescaler)
}

// TickTimer owns the millisecond counter. Tick runs in interrupt context and is
// the only writer; CurrentMs is the only reader and runs with interrupts disabled
// for the duration of the copy.
type TickTimer struct {
	regs   TimerRegisters
	irq    core.InterruptController
	millis int64
	ready  bool
}

// NewTickTimer creates a timer on regs. irq guards reads of the counter.
func NewTickTimer(regs TimerRegisters, irq core.InterruptController) *TickTimer {
	return &TickTimer{regs: regs, irq: irq}
}

// Init starts Timer1 in CTC mode at clock/8 with one compare interrupt per
// millisecond. Only the first call has an effect.
func (t *TickTimer) Init(clockHz uint32) {
	if t.ready {
		return
	}
	t.ready = true

	threshold := CompareThreshold(clockHz, Prescaler)

	// Clear on match mode, Clock/8
	t.regs.TCCRB.Set(WGM12 | CS11)
	// 16-bit write goes through the TEMP register: high byte first
	t.regs.OCRAH.Set(uint8(threshold >> 8))
	t.regs.OCRAL.Set(uint8(threshold))
	t.regs.TIMSK.SetBits(OCIE1A)
}

// Tick is the compare match handler body
func (t *TickTimer) Tick() {
	t.millis++
}

// CurrentMs returns the milliseconds elapsed since Init
func (t *TickTimer) CurrentMs() int64 {
	state := t.irq.Disable()
	millis := t.millis
	t.irq.Restore(state)
	return millis
}

// Threshold reads back the programmed compare value
func (t *TickTimer) Threshold() uint16 {
	return uint16(t.regs.OCRAH.Get())<<8 | uint16(t.regs.OCRAL.Get())
}
