package sim

import (
	"fmt"

	"avrio/avr8"
	"avrio/board"
	"avrio/core"
)

// Chip is a simulated AVR8 running the avr8 binding
type Chip struct {
	Board      *board.Board
	Memory     *Memory
	Interrupts *Interrupts
	Timer1     *Timer1
	Ports      avr8.PortTable
	Ticks      *avr8.TickTimer
	IO         *avr8.IO
}

// NewChip builds the data space, wires the ports and starts the tick timer the
// way firmware does at reset. debug receives the binding's reports and may be nil.
func NewChip(b *board.Board, debug core.Debugger) *Chip {
	mem := NewMemory(b.MemorySize)
	irq := NewInterrupts()

	ports := make(avr8.PortTable, 0, len(b.Ports))
	for _, p := range b.Ports {
		mem.AttachPort(p.PIN, p.DDR, p.PORT)
		ports = append(ports, avr8.Port{
			Name: p.Name[0],
			DDR:  mem.Register(p.DDR),
			PIN:  mem.Register(p.PIN),
			PORT: mem.Register(p.PORT),
		})
	}

	ticks := avr8.NewTickTimer(avr8.TimerRegisters{
		TCCRB: mem.Register(b.Timer.TCCRB),
		OCRAH: mem.Register(b.Timer.OCRAH),
		OCRAL: mem.Register(b.Timer.OCRAL),
		TIMSK: mem.Register(b.Timer.TIMSK),
	}, irq)
	irq.Handle(VectorTimer1CompA, ticks.Tick)
	ticks.Init(b.CPUFrequency)

	return &Chip{
		Board:      b,
		Memory:     mem,
		Interrupts: irq,
		Timer1:     NewTimer1(mem, b.Timer, b.CPUFrequency, irq),
		Ports:      ports,
		Ticks:      ticks,
		IO:         avr8.New(ports, ticks, debug),
	}
}

func (c *Chip) pinAddress(pin core.PinID) (uint16, error) {
	idx := avr8.PortIndex(pin)
	if idx >= len(c.Board.Ports) {
		return 0, fmt.Errorf("pin %d outside %d pins", pin, c.Board.PinCount())
	}
	return c.Board.Ports[idx].PIN, nil
}

// DrivePin applies an external level to a pin
func (c *Chip) DrivePin(pin core.PinID, high bool) error {
	addr, err := c.pinAddress(pin)
	if err != nil {
		return err
	}
	return c.Memory.Drive(addr, avr8.BitMask(pin), high)
}

// ReleasePin stops driving a pin from outside
func (c *Chip) ReleasePin(pin core.PinID) error {
	addr, err := c.pinAddress(pin)
	if err != nil {
		return err
	}
	return c.Memory.Release(addr, avr8.BitMask(pin))
}

// PortSnapshot is the register triple of one port at one instant
type PortSnapshot struct {
	Name           string
	DDR, PIN, PORT uint8
}

// Snapshot reads every port's registers
func (c *Chip) Snapshot() []PortSnapshot {
	snap := make([]PortSnapshot, 0, len(c.Board.Ports))
	for _, p := range c.Board.Ports {
		snap = append(snap, PortSnapshot{
			Name: p.Name,
			DDR:  c.Memory.Peek(p.DDR),
			PIN:  c.Memory.Peek(p.PIN),
			PORT: c.Memory.Peek(p.PORT),
		})
	}
	return snap
}
