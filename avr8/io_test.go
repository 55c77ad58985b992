package avr8_test

import (
	"testing"

	"avrio/avr8"
	"avrio/avr8/sim"
	"avrio/board"
	"avrio/core"
)

func newChip(t *testing.T, mcu string) (*sim.Chip, *core.DebugRing) {
	t.Helper()
	b, err := board.Lookup(mcu)
	if err != nil {
		t.Fatalf("board.Lookup(%q): %v", mcu, err)
	}
	ring := core.NewDebugRing(nil)
	return sim.NewChip(b, ring), ring
}

func TestDigitalLoopback(t *testing.T) {
	for _, mcu := range board.Names() {
		chip, _ := newChip(t, mcu)
		io := chip.IO
		for p := 0; p < chip.Ports.PinCount(); p++ {
			pin := core.PinID(p)
			io.PinSetMode(pin, core.OutputPin)

			io.DigitalWrite(pin, true)
			if !io.DigitalRead(pin) {
				t.Errorf("%s: pin %d read false after writing true", mcu, p)
			}
			io.DigitalWrite(pin, false)
			if io.DigitalRead(pin) {
				t.Errorf("%s: pin %d read true after writing false", mcu, p)
			}
		}
	}
}

func TestDigitalWriteTouchesOneBit(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	portB := chip.Board.Ports[0]

	for p := 0; p < 8; p++ {
		chip.IO.DigitalWrite(core.PinID(p), true)
	}
	chip.IO.DigitalWrite(2, false)
	if got := chip.Memory.Peek(portB.PORT); got != 0xFB {
		t.Errorf("PORTB = 0x%02x, expected 0xFB", got)
	}
}

func TestInputModeKeepsOtherPins(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	portD := chip.Board.Ports[2]
	io := chip.IO

	// PD0..PD7 are pins 16..23
	for p := core.PinID(16); p < 24; p++ {
		io.PinSetMode(p, core.OutputPin)
	}
	io.DigitalWrite(16, true)
	io.DigitalWrite(19, true)
	io.DigitalWrite(23, true)
	before := chip.Memory.Peek(portD.PORT)

	io.PinSetMode(20, core.InputPin)

	if got := chip.Memory.Peek(portD.PORT); got != before {
		t.Errorf("PORTD changed from 0x%02x to 0x%02x", before, got)
	}
	if got := chip.Memory.Peek(portD.DDR); got != 0xEF {
		t.Errorf("DDRD = 0x%02x, expected 0xEF", got)
	}
}

func TestInputReadsExternalLevel(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	io := chip.IO
	io.PinSetMode(9, core.InputPin)

	if err := chip.DrivePin(9, true); err != nil {
		t.Fatal(err)
	}
	if !io.DigitalRead(9) {
		t.Error("Driven high input read false")
	}
	if err := chip.DrivePin(9, false); err != nil {
		t.Fatal(err)
	}
	if io.DigitalRead(9) {
		t.Error("Driven low input read true")
	}

	// undriven input follows the pull-up
	if err := chip.ReleasePin(9); err != nil {
		t.Fatal(err)
	}
	io.PinSetPullup(9, core.PullUp)
	if !io.DigitalRead(9) {
		t.Error("Pulled-up floating input read false")
	}
	io.PinSetPullup(9, core.PullNone)
	if io.DigitalRead(9) {
		t.Error("Floating input without pull-up read true")
	}
}

func TestPullupAndModeAsymmetry(t *testing.T) {
	chip, ring := newChip(t, "atmega328p")
	portB := chip.Board.Ports[0]
	io := chip.IO

	io.PinSetPullup(3, core.PullUp)
	if got := chip.Memory.Peek(portB.PORT); got != 0x08 {
		t.Errorf("PORTB = 0x%02x after pull-up, expected 0x08", got)
	}
	io.PinSetPullup(3, core.PullNone)
	if got := chip.Memory.Peek(portB.PORT); got != 0 {
		t.Errorf("PORTB = 0x%02x after no-pull, expected 0", got)
	}
	if ring.Count() != 0 {
		t.Fatalf("Valid pull-up modes reported %d diagnostics", ring.Count())
	}

	// unknown pull-up mode: reported, no-op
	io.PinSetPullup(3, core.PullupMode(7))
	if got := chip.Memory.Peek(portB.PORT); got != 0 {
		t.Errorf("Unknown pull-up mode changed PORTB to 0x%02x", got)
	}
	if ring.Count() != 1 {
		t.Errorf("Unknown pull-up mode reported %d diagnostics, expected 1", ring.Count())
	}

	// unknown pin mode: silent no-op
	io.PinSetMode(3, core.OutputPin)
	io.PinSetMode(3, core.PinMode(7))
	if got := chip.Memory.Peek(portB.DDR); got != 0x08 {
		t.Errorf("Unknown pin mode changed DDRB to 0x%02x", got)
	}
	if ring.Count() != 1 {
		t.Errorf("Unknown pin mode reported a diagnostic")
	}
}

func TestUnimplementedOperations(t *testing.T) {
	testCases := []struct {
		name string
		call func(io *avr8.IO) int64
	}{
		{"SerialBegin", func(io *avr8.IO) int64 { io.SerialBegin(0, 9600); return 0 }},
		{"SerialDataAvailable", func(io *avr8.IO) int64 { return int64(io.SerialDataAvailable(0)) }},
		{"SerialRead", func(io *avr8.IO) int64 { return int64(io.SerialRead(0)) }},
		{"SerialWrite", func(io *avr8.IO) int64 { io.SerialWrite(0, 'x'); return 0 }},
		{"AnalogRead", func(io *avr8.IO) int64 { return int64(io.AnalogRead(14)) }},
		{"PwmWrite", func(io *avr8.IO) int64 { io.PwmWrite(5, 50); return 0 }},
		{"AttachExternalInterrupt", func(io *avr8.IO) int64 {
			io.AttachExternalInterrupt(0, core.InterruptOnRisingEdge, func(any) {}, nil)
			return 0
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chip, ring := newChip(t, "atmega328p")
			chip.IO.PinSetMode(5, core.OutputPin)
			chip.IO.DigitalWrite(5, true)
			before := chip.Snapshot()

			if got := tc.call(chip.IO); got != 0 {
				t.Errorf("Returned %d, expected 0", got)
			}

			events := ring.Events()
			if len(events) != 1 {
				t.Fatalf("Got %d diagnostics, expected exactly 1", len(events))
			}
			if events[0].Level != core.DebugLevelError || events[0].ID != core.DebugIoOperationNotImplemented {
				t.Errorf("Diagnostic %s %s, expected error IoOperationNotImplemented", events[0].Level, events[0].ID)
			}

			after := chip.Snapshot()
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("Port %s changed: %+v -> %+v", before[i].Name, before[i], after[i])
				}
			}
		})
	}
}

func TestNilDebuggerIsSafe(t *testing.T) {
	b, err := board.Lookup("atmega328p")
	if err != nil {
		t.Fatal(err)
	}
	chip := sim.NewChip(b, nil)
	if chip.IO.AnalogRead(0) != 0 {
		t.Error("AnalogRead returned non-zero")
	}
}

func TestCapabilities(t *testing.T) {
	chip, _ := newChip(t, "atmega328p")
	caps := chip.IO.Capabilities()

	for _, c := range []core.Capability{core.CapDigital, core.CapPullup, core.CapTimer} {
		if !caps.Has(c) {
			t.Errorf("Capabilities %s missing %s", caps, c)
		}
	}
	for _, c := range []core.Capability{core.CapSerial, core.CapAnalog, core.CapPWM, core.CapExternalInterrupt} {
		if caps.Has(c) {
			t.Errorf("Capabilities %s claims stubbed %s", caps, c)
		}
	}
}
