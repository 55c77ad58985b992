// Package avr8 binds the core IO contract to the register layout of 8-bit AVR
// microcontrollers: 8-pin ports with DDR/PIN/PORT register triples and a 16-bit
// Timer1 providing the millisecond tick.
package avr8

// Register8 is an 8-bit memory mapped register.
// *volatile.Register8 from TinyGo satisfies it, as does the simulator's register.
// SetBits, ClearBits and HasBits are each a single register transaction.
type Register8 interface {
	Get() uint8
	Set(value uint8)
	SetBits(mask uint8)
	ClearBits(mask uint8)
	HasBits(mask uint8) bool
}

// Port is the register triple of one physical 8-pin port
type Port struct {
	Name byte      // 'A', 'B', ...
	DDR  Register8 // direction, bit set = output
	PIN  Register8 // input state
	PORT Register8 // output state; pull-up enable for input pins
}

// PortTable is the fixed, ordered set of ports of a chip, indexed by port number.
// It is built once at startup and never modified.
type PortTable []Port

// PinCount returns the size of the logical pin space covered by the table
func (t PortTable) PinCount() int {
	return len(t) * PinsPerPort
}
