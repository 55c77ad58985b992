package avr8_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"avrio/avr8"
	"avrio/avr8/sim"
	"avrio/board"
)

func TestCompareThreshold(t *testing.T) {
	testCases := []struct {
		clock     uint32
		prescaler uint32
		expected  uint16
	}{
		{16000000, 8, 2000},
		{20000000, 8, 2500},
		{8000000, 8, 1000},
		{1000000, 8, 125},
		{16000000, 64, 250},
	}

	for _, tc := range testCases {
		if got := avr8.CompareThreshold(tc.clock, tc.prescaler); got != tc.expected {
			t.Errorf("CompareThreshold(%d, %d) = %d, expected %d", tc.clock, tc.prescaler, got, tc.expected)
		}
	}
}

func TestTickTimerInitProgramsTimer1(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	regs := chip.Board.Timer

	if got := chip.Memory.Peek(regs.TCCRB); got != avr8.WGM12|avr8.CS11 {
		t.Errorf("TCCR1B = 0x%02x, expected 0x%02x", got, avr8.WGM12|avr8.CS11)
	}
	if hi, lo := chip.Memory.Peek(regs.OCRAH), chip.Memory.Peek(regs.OCRAL); hi != 0x07 || lo != 0xD0 {
		t.Errorf("OCR1A = 0x%02x%02x, expected 0x07D0", hi, lo)
	}
	if chip.Memory.Peek(regs.TIMSK)&avr8.OCIE1A == 0 {
		t.Error("OCIE1A not set in TIMSK1")
	}
	if got := chip.Ticks.Threshold(); got != 2000 {
		t.Errorf("Threshold = %d, expected 2000", got)
	}
	if got := chip.Timer1.Prescaler(); got != avr8.Prescaler {
		t.Errorf("Simulated prescaler = %d, expected %d", got, avr8.Prescaler)
	}
	if got := chip.Timer1.Period(); got != time.Millisecond+500*time.Nanosecond {
		// CTC counts 0..OCR1A inclusive: 2001 ticks of 0.5 us
		t.Errorf("Period = %v, expected 1.0005ms", got)
	}
}

func TestTickTimerInitOnce(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	chip.Ticks.Init(8000000)
	if got := chip.Ticks.Threshold(); got != 2000 {
		t.Errorf("Second Init changed the threshold to %d", got)
	}
}

func TestTickTimerCountsInterrupts(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")

	if got := chip.IO.TimerCurrentMs(); got != 0 {
		t.Fatalf("Initial time %d, expected 0", got)
	}

	prev := chip.IO.TimerCurrentMs()
	for _, k := range []int{1, 0, 7, 1000, 3} {
		if n := chip.Timer1.FireN(k); n != k {
			t.Fatalf("FireN(%d) delivered %d", k, n)
		}
		now := chip.IO.TimerCurrentMs()
		if now != prev+int64(k) {
			t.Errorf("After %d interrupts time went from %d to %d", k, prev, now)
		}
		prev = now
	}
	if got := chip.Interrupts.Dispatched(); got != 1011 {
		t.Errorf("Dispatched = %d, expected 1011", got)
	}
}

func TestTickTimerWrapsSilently(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")

	chip.Ticks.SetCount(math.MaxInt64)
	chip.Timer1.FireN(1)
	if got := chip.IO.TimerCurrentMs(); got != math.MinInt64 {
		t.Errorf("After wrap time is %d, expected %d", got, int64(math.MinInt64))
	}

	chip.Ticks.SetCount(math.MaxInt64 - 2)
	chip.Timer1.FireN(5)
	if got := chip.IO.TimerCurrentMs(); got != math.MinInt64+2 {
		t.Errorf("5 ticks from MaxInt64-2 gave %d, expected %d", got, int64(math.MinInt64+2))
	}
}

func TestTimerDisabledDoesNotTick(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	chip.Memory.Poke(chip.Board.Timer.TIMSK, 0)

	if n := chip.Timer1.FireN(5); n != 0 {
		t.Errorf("Disabled timer delivered %d interrupts", n)
	}
	if got := chip.IO.TimerCurrentMs(); got != 0 {
		t.Errorf("Time advanced to %d with the compare interrupt masked", got)
	}
}

// TestCurrentMsIsNotTorn checks that an interrupt arriving while the counter is
// being read waits until the read completes
func TestCurrentMsIsNotTorn(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	irq := chip.Interrupts

	state := irq.Disable()
	fired := make(chan struct{})
	go func() {
		irq.Fire(sim.VectorTimer1CompA)
		close(fired)
	}()

	select {
	case <-fired:
		t.Fatal("Interrupt was delivered while interrupts were disabled")
	case <-time.After(20 * time.Millisecond):
	}
	irq.Restore(state)
	<-fired

	if got := chip.IO.TimerCurrentMs(); got != 1 {
		t.Errorf("Time = %d after the deferred interrupt, expected 1", got)
	}
}

func TestCurrentMsMonotonicUnderLoad(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	const fires = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		chip.Timer1.FireN(fires)
	}()

	prev := int64(0)
	for i := 0; i < 10000; i++ {
		now := chip.IO.TimerCurrentMs()
		if now < prev {
			t.Fatalf("Time went backwards: %d -> %d", prev, now)
		}
		prev = now
	}
	wg.Wait()

	if got := chip.IO.TimerCurrentMs(); got != fires {
		t.Errorf("Time = %d, expected %d", got, fires)
	}
}

func TestTimer1Run(t *testing.T) {
	b, err := board.Lookup("atmega328p")
	if err != nil {
		t.Fatal(err)
	}
	chip := sim.NewChip(b, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	chip.Timer1.Run(ctx)

	if got := chip.IO.TimerCurrentMs(); got == 0 {
		t.Error("Timer did not tick while running")
	}
}
