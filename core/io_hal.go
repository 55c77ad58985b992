package core

// PinID identifies one pin across all ports of a chip
type PinID uint8

// PinMode selects the direction of a pin
type PinMode uint8

const (
	InputPin PinMode = iota
	OutputPin
)

// PullupMode selects the pull resistor of an input pin
type PullupMode uint8

const (
	PullNone PullupMode = iota
	PullUp
)

// InterruptMode selects the trigger condition of an external interrupt
type InterruptMode uint8

const (
	InterruptOnLow InterruptMode = iota
	InterruptOnHigh
	InterruptOnChange
	InterruptOnRisingEdge
	InterruptOnFallingEdge
)

// InterruptFunc is called from interrupt context with the user value given at attach time
type InterruptFunc func(user any)

// IO is the platform independent hardware contract that the runtime drives.
// Chip bindings implement it against their own registers.
//
// Operations a binding does not support still exist on the interface. They report
// DebugIoOperationNotImplemented through the binding's Debugger and return zero
// values; use Capabilities to tell an unsupported operation from a real zero reading.
type IO interface {
	// Serial
	SerialBegin(dev uint8, baudrate int32)
	SerialDataAvailable(dev uint8) int32
	SerialRead(dev uint8) uint8
	SerialWrite(dev uint8, b uint8)

	// Pin config
	PinSetMode(pin PinID, mode PinMode)
	PinSetPullup(pin PinID, mode PullupMode)

	// Digital
	DigitalWrite(pin PinID, value bool)
	DigitalRead(pin PinID) bool

	// Analog
	AnalogRead(pin PinID) int32
	PwmWrite(pin PinID, dutyPercent int32)

	// Timer
	TimerCurrentMs() int64

	AttachExternalInterrupt(irq uint8, mode InterruptMode, fn InterruptFunc, user any)

	// Capabilities reports which of the operations above are backed by hardware
	Capabilities() Capability
}

// Capability is a bit set of IO operation groups
type Capability uint32

const (
	CapDigital Capability = 1 << iota
	CapPullup
	CapTimer
	CapSerial
	CapAnalog
	CapPWM
	CapExternalInterrupt
)

var capabilityNames = [...]string{
	"digital",
	"pullup",
	"timer",
	"serial",
	"analog",
	"pwm",
	"external_interrupt",
}

// Has reports whether every capability in other is present in c
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	s := ""
	for i, name := range capabilityNames {
		if c&(1<<uint(i)) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	return s
}

func (m PinMode) String() string {
	switch m {
	case InputPin:
		return "input"
	case OutputPin:
		return "output"
	}
	return "pin_mode(" + itoa(int(m)) + ")"
}

func (m PullupMode) String() string {
	switch m {
	case PullNone:
		return "none"
	case PullUp:
		return "up"
	}
	return "pullup_mode(" + itoa(int(m)) + ")"
}
