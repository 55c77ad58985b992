package core

import (
	"strings"
	"testing"
)

func TestLevelFilter(t *testing.T) {
	ring := NewDebugRing(nil)
	filter := NewLevelFilter(DebugLevelError, ring)

	filter.EmitDebug(DebugLevelInfo, DebugUnknownCommand)
	filter.EmitDebug(DebugLevelError, DebugIoOperationNotImplemented)
	if ring.Count() != 1 {
		t.Fatalf("Forwarded %d reports at level error, expected 1", ring.Count())
	}

	filter.SetLevel(DebugLevelVeryDetailed)
	if filter.Level() != DebugLevelVeryDetailed {
		t.Errorf("Level = %s", filter.Level())
	}
	filter.EmitDebug(DebugLevelDetailed, DebugBufferOverflow)
	if ring.Count() != 2 {
		t.Errorf("Forwarded %d reports after raising the level, expected 2", ring.Count())
	}

	NewLevelFilter(DebugLevelError, nil).EmitDebug(DebugLevelError, DebugInvalid)
}

func TestDebugRingWraps(t *testing.T) {
	now := int64(0)
	ring := NewDebugRing(func() int64 { return now })

	for i := 0; i < DebugRingSize+5; i++ {
		now = int64(i)
		ring.EmitDebug(DebugLevelError, DebugID(i%5))
	}

	if ring.Count() != DebugRingSize+5 {
		t.Errorf("Count = %d, expected %d", ring.Count(), DebugRingSize+5)
	}
	events := ring.Events()
	if len(events) != DebugRingSize {
		t.Fatalf("Retained %d events, expected %d", len(events), DebugRingSize)
	}
	if events[0].Time != 5 || events[len(events)-1].Time != DebugRingSize+4 {
		t.Errorf("Retained events span t=%d..%d, expected 5..%d",
			events[0].Time, events[len(events)-1].Time, DebugRingSize+4)
	}

	var lines []string
	ring.Dump(func(s string) { lines = append(lines, s) })
	if len(lines) != DebugRingSize+2 {
		t.Errorf("Dump wrote %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "t=5 error") {
		t.Errorf("First dumped event %q", lines[1])
	}

	ring.Clear()
	if ring.Count() != 0 || len(ring.Events()) != 0 {
		t.Error("Clear left events behind")
	}
}

func TestMultiDebugger(t *testing.T) {
	a, b := NewDebugRing(nil), NewDebugRing(nil)
	var calls int
	m := MultiDebugger{a, nil, b, DebugFunc(func(DebugLevel, DebugID) { calls++ })}
	m.EmitDebug(DebugLevelInfo, DebugMalformedCommand)

	if a.Count() != 1 || b.Count() != 1 || calls != 1 {
		t.Errorf("Fan-out reached a=%d b=%d func=%d", a.Count(), b.Count(), calls)
	}
	NopDebugger{}.EmitDebug(DebugLevelError, DebugInvalid)
}

func TestDebugPrintln(t *testing.T) {
	var got []string
	SetDebugWriter(func(s string) { got = append(got, s) })
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	DebugPrintln("hidden")
	SetDebugEnabled(true)
	if !IsDebugEnabled() {
		t.Fatal("Debug output not enabled")
	}
	DebugPrintln("shown")

	if len(got) != 1 || got[0] != "shown" {
		t.Errorf("Writer saw %v", got)
	}
}

func TestStringers(t *testing.T) {
	testCases := []struct {
		got, want string
	}{
		{DebugLevelVeryDetailed.String(), "very_detailed"},
		{DebugLevel(9).String(), "level(9)"},
		{DebugIoOperationNotImplemented.String(), "IoOperationNotImplemented"},
		{DebugInvalidPin.String(), "InvalidPin"},
		{DebugID(200).String(), "debug(200)"},
		{(CapDigital | CapTimer).String(), "digital|timer"},
		{Capability(0).String(), "none"},
		{OutputPin.String(), "output"},
		{PullUp.String(), "up"},
		{itoa64(-9223372036854775807), "-9223372036854775807"},
		{utoa(4294967295), "4294967295"},
	}

	for _, tc := range testCases {
		if tc.got != tc.want {
			t.Errorf("Got %q, expected %q", tc.got, tc.want)
		}
	}
}
