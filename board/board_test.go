package board

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validBoard = `
mcu: testchip
cpu_frequency: 16000000
ports:
  - {name: B, pin: 0x23, ddr: 0x24, port: 0x25}
timer: {timsk: 0x6F, tccrb: 0x81, ocral: 0x88, ocrah: 0x89}
`

func TestBuiltinBoards(t *testing.T) {
	names := Names()
	if len(names) != 3 {
		t.Fatalf("Names() = %v, expected 3 built-in boards", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
	for _, name := range names {
		b, err := Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		} else if b.MCU != name {
			t.Errorf("Names() lists %q for a board with MCU %q", name, b.MCU)
		}
	}

	testCases := []struct {
		name      string
		ports     int
		threshold uint16
	}{
		{"atmega328p", 3, 2000},
		{"arduino-uno", 3, 2000},
		{"atmega2560", 11, 2000},
		{"at90usb1287", 6, 1000},
	}
	for _, tc := range testCases {
		b, err := Lookup(tc.name)
		if err != nil {
			t.Errorf("Lookup(%q): %v", tc.name, err)
			continue
		}
		if len(b.Ports) != tc.ports {
			t.Errorf("%s: %d ports, expected %d", tc.name, len(b.Ports), tc.ports)
		}
		if b.Threshold() != tc.threshold {
			t.Errorf("%s: threshold %d, expected %d", tc.name, b.Threshold(), tc.threshold)
		}
		if b.PinCount() != tc.ports*8 {
			t.Errorf("%s: %d pins, expected %d", tc.name, b.PinCount(), tc.ports*8)
		}
	}

	if _, err := Lookup("pic16f84"); err == nil {
		t.Error("Lookup of an unknown board should fail")
	}
}

func TestParseDefaults(t *testing.T) {
	b, err := Parse([]byte(validBoard))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Name != "testchip" {
		t.Errorf("Name defaulted to %q, expected the MCU name", b.Name)
	}
	if b.MemorySize != defaultMemorySize {
		t.Errorf("MemorySize = 0x%x, expected 0x%x", b.MemorySize, defaultMemorySize)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(b *Board)
		errMsg string
	}{
		{"missing clock", func(b *Board) { b.CPUFrequency = 0 }, "cpu_frequency not defined"},
		{"clock too slow", func(b *Board) { b.CPUFrequency = 4000 }, "outside 1..65535"},
		{"clock too fast", func(b *Board) { b.CPUFrequency = 600000000 }, "outside 1..65535"},
		{"no ports", func(b *Board) { b.Ports = nil }, "no ports"},
		{"long port name", func(b *Board) { b.Ports[0].Name = "BB" }, "one letter"},
		{"overlapping registers", func(b *Board) { b.Ports[0].DDR = b.Ports[0].PIN }, "already used"},
		{"timer overlaps port", func(b *Board) { b.Timer.TIMSK = b.Ports[0].PORT }, "already used"},
		{"address outside memory", func(b *Board) { b.Ports[0].PORT = 0x1000 }, "outside memory"},
		{"memory too large", func(b *Board) { b.MemorySize = 0x20000 }, "exceeds 64 KiB"},
		{"too many ports", func(b *Board) {
			b.Ports = make([]PortConfig, MaxPorts+1)
		}, "at most"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Parse([]byte(validBoard))
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(b)
			err = b.Validate()
			if !errors.Is(err, ErrInvalidBoard) {
				t.Fatalf("Validate() = %v, expected ErrInvalidBoard", err)
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("Error %q does not mention %q", err, tc.errMsg)
			}
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("ports: [")); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("Parse of broken YAML = %v, expected ErrInvalidBoard", err)
	}
}

func TestResolveFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(file, []byte(validBoard), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Resolve(file)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", file, err)
	}
	if b.MCU != "testchip" {
		t.Errorf("MCU = %q, expected testchip", b.MCU)
	}

	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Resolve of a missing file should fail")
	}
	if b, err := Resolve("atmega328p"); err != nil || b.Name != "arduino-uno" {
		t.Errorf("Resolve(atmega328p) = %v, %v", b, err)
	}
}
