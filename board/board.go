// Package board describes AVR boards for the simulator: clock frequency, data
// space size, the port register table and the Timer1 registers.
package board

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"avrio/avr8"
)

// ErrInvalidBoard is wrapped by every validation error
var ErrInvalidBoard = errors.New("invalid board")

// MaxPorts bounds the port table so that every pin fits a core.PinID
const MaxPorts = 32

// Board is one board description
type Board struct {
	Name         string       `yaml:"name"`
	MCU          string       `yaml:"mcu"`
	CPUFrequency uint32       `yaml:"cpu_frequency"`
	MemorySize   uint32       `yaml:"memory_size"`
	Ports        []PortConfig `yaml:"ports"`
	Timer        TimerConfig  `yaml:"timer"`
}

// PortConfig holds the data space addresses of one port's register triple
type PortConfig struct {
	Name string `yaml:"name"`
	PIN  uint16 `yaml:"pin"`
	DDR  uint16 `yaml:"ddr"`
	PORT uint16 `yaml:"port"`
}

// TimerConfig holds the data space addresses of the Timer1 registers
type TimerConfig struct {
	TCCRB uint16 `yaml:"tccrb"`
	OCRAH uint16 `yaml:"ocrah"`
	OCRAL uint16 `yaml:"ocral"`
	TIMSK uint16 `yaml:"timsk"`
}

const defaultMemorySize = 0x900

//go:embed boards/*.yaml
var builtinFS embed.FS

// Parse decodes and validates a YAML board description
func Parse(data []byte) (*Board, error) {
	var b Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}
	applyDefaults(&b)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Load reads a board description from a file
func Load(file string) (*Board, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read board %s: %w", file, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", file, err)
	}
	return b, nil
}

// Lookup returns a built-in board by MCU or board name
func Lookup(name string) (*Board, error) {
	boards, err := builtins()
	if err != nil {
		return nil, err
	}
	for _, b := range boards {
		if b.MCU == name || b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown board %q", name)
}

// Resolve loads name as a file when it looks like a path, otherwise as a built-in
func Resolve(name string) (*Board, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") || strings.ContainsRune(name, os.PathSeparator) {
		return Load(name)
	}
	return Lookup(name)
}

// Names returns the MCU names of the built-in boards, sorted
func Names() []string {
	boards, err := builtins()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(boards))
	for _, b := range boards {
		names = append(names, b.MCU)
	}
	slices.Sort(names)
	return names
}

func builtins() ([]*Board, error) {
	entries, err := builtinFS.ReadDir("boards")
	if err != nil {
		return nil, err
	}
	boards := make([]*Board, 0, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("boards", e.Name()))
		if err != nil {
			return nil, err
		}
		b, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("built-in board %s: %w", e.Name(), err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

func applyDefaults(b *Board) {
	if b.MemorySize == 0 {
		b.MemorySize = defaultMemorySize
	}
	if b.Name == "" {
		b.Name = b.MCU
	}
}

// Validate checks the description for values the simulator cannot run with
func (b *Board) Validate() error {
	if b.CPUFrequency == 0 {
		return fmt.Errorf("%w: cpu_frequency not defined", ErrInvalidBoard)
	}
	threshold := (b.CPUFrequency / 1000) / avr8.Prescaler
	if threshold == 0 || threshold > 0xFFFF {
		return fmt.Errorf("%w: cpu_frequency %d gives compare value %d, outside 1..65535",
			ErrInvalidBoard, b.CPUFrequency, threshold)
	}
	if b.MemorySize > 0x10000 {
		return fmt.Errorf("%w: memory_size 0x%x exceeds 64 KiB data space", ErrInvalidBoard, b.MemorySize)
	}
	if len(b.Ports) == 0 {
		return fmt.Errorf("%w: no ports", ErrInvalidBoard)
	}
	if len(b.Ports) > MaxPorts {
		return fmt.Errorf("%w: %d ports, at most %d supported", ErrInvalidBoard, len(b.Ports), MaxPorts)
	}

	used := make(map[uint16]string)
	claim := func(addr uint16, what string) error {
		if uint32(addr) >= b.MemorySize {
			return fmt.Errorf("%w: %s address 0x%x outside memory", ErrInvalidBoard, what, addr)
		}
		if prev, ok := used[addr]; ok {
			return fmt.Errorf("%w: %s address 0x%x already used by %s", ErrInvalidBoard, what, addr, prev)
		}
		used[addr] = what
		return nil
	}

	for i, p := range b.Ports {
		if len(p.Name) != 1 {
			return fmt.Errorf("%w: port %d name %q must be one letter", ErrInvalidBoard, i, p.Name)
		}
		for _, r := range []struct {
			addr uint16
			reg  string
		}{{p.PIN, "PIN"}, {p.DDR, "DDR"}, {p.PORT, "PORT"}} {
			if err := claim(r.addr, r.reg+p.Name); err != nil {
				return err
			}
		}
	}

	t := b.Timer
	for _, r := range []struct {
		addr uint16
		reg  string
	}{{t.TCCRB, "TCCR1B"}, {t.OCRAH, "OCR1AH"}, {t.OCRAL, "OCR1AL"}, {t.TIMSK, "TIMSK1"}} {
		if err := claim(r.addr, r.reg); err != nil {
			return err
		}
	}
	return nil
}

// Threshold returns the Timer1 compare value for this board's clock
func (b *Board) Threshold() uint16 {
	return avr8.CompareThreshold(b.CPUFrequency, avr8.Prescaler)
}

// PinCount returns the number of logical pins
func (b *Board) PinCount() int {
	return len(b.Ports) * avr8.PinsPerPort
}
