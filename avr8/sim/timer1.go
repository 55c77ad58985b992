package sim

import (
	"context"
	"time"

	"avrio/avr8"
	"avrio/board"
)

// clock select field of TCCR1B
const csMask = 0x07

var prescalers = [8]uint32{0, 1, 8, 64, 256, 1024, 0, 0}

// Timer1 simulates the 16-bit timer in CTC mode. It only models the compare A
// interrupt: the period follows from OCR1A, the clock select bits and the CPU
// clock, and each period fires VectorTimer1CompA when OCIE1A is set.
type Timer1 struct {
	mem     *Memory
	regs    board.TimerConfig
	clockHz uint32
	irq     *Interrupts
}

// NewTimer1 creates a timer reading its registers from mem
func NewTimer1(mem *Memory, regs board.TimerConfig, clockHz uint32, irq *Interrupts) *Timer1 {
	return &Timer1{mem: mem, regs: regs, clockHz: clockHz, irq: irq}
}

// Prescaler returns the input clock divider selected in TCCR1B, 0 when stopped
// or clocked externally
func (t *Timer1) Prescaler() uint32 {
	return prescalers[t.mem.Peek(t.regs.TCCRB)&csMask]
}

// Compare returns OCR1A
func (t *Timer1) Compare() uint16 {
	return uint16(t.mem.Peek(t.regs.OCRAH))<<8 | uint16(t.mem.Peek(t.regs.OCRAL))
}

// Enabled reports whether the timer runs in CTC mode with the compare A
// interrupt enabled
func (t *Timer1) Enabled() bool {
	return t.mem.Peek(t.regs.TCCRB)&avr8.WGM12 != 0 &&
		t.mem.Peek(t.regs.TIMSK)&avr8.OCIE1A != 0 &&
		t.Prescaler() != 0
}

// Period returns the time between compare matches. In CTC mode the counter
// runs from 0 to OCR1A inclusive.
func (t *Timer1) Period() time.Duration {
	prescaler := t.Prescaler()
	if prescaler == 0 || t.clockHz == 0 {
		return 0
	}
	ticks := (uint64(t.Compare()) + 1) * uint64(prescaler)
	return time.Duration(ticks * uint64(time.Second) / uint64(t.clockHz))
}

// FireN delivers n compare match interrupts back to back, as if n periods had
// elapsed. It returns the number delivered, 0 while the timer is not enabled.
func (t *Timer1) FireN(n int) int {
	if !t.Enabled() {
		return 0
	}
	for i := 0; i < n; i++ {
		t.irq.Fire(VectorTimer1CompA)
	}
	return n
}

// Run fires compare match interrupts in real time until ctx is done
func (t *Timer1) Run(ctx context.Context) error {
	period := t.Period()
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.Enabled() {
				t.irq.Fire(VectorTimer1CompA)
			}
		}
	}
}
