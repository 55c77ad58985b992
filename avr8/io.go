package avr8

import "avrio/core"

// IO implements core.IO for an AVR8 chip. Pin operations go straight to the port
// registers; time comes from the tick timer. Serial, analog, PWM and external
// interrupts are not wired up on this binding.
type IO struct {
	ports PortTable
	timer *TickTimer
	debug core.Debugger
}

var _ core.IO = (*IO)(nil)

// New creates the capability object. The timer must already be initialized.
func New(ports PortTable, timer *TickTimer, debug core.Debugger) *IO {
	if debug == nil {
		debug = core.NopDebugger{}
	}
	return &IO{ports: ports, timer: timer, debug: debug}
}

// Ports returns the port table the object was built with
func (io *IO) Ports() PortTable {
	return io.ports
}

// Timer returns the tick timer
func (io *IO) Timer() *TickTimer {
	return io.timer
}

func (io *IO) notImplemented() {
	io.debug.EmitDebug(core.DebugLevelError, core.DebugIoOperationNotImplemented)
}

// Serial

// SerialBegin is a stub: it reports not implemented.
func (io *IO) SerialBegin(dev uint8, baudrate int32) {
	io.notImplemented()
}

// SerialDataAvailable is a stub returning 0.
func (io *IO) SerialDataAvailable(dev uint8) int32 {
	io.notImplemented()
	return 0
}

// SerialRead is a stub returning 0.
func (io *IO) SerialRead(dev uint8) uint8 {
	io.notImplemented()
	return 0
}

// SerialWrite is a stub; the byte is dropped.
func (io *IO) SerialWrite(dev uint8, b uint8) {
	io.notImplemented()
}

// Pin config

// PinSetMode sets or clears the DDR bit. Modes other than input and output are ignored.
func (io *IO) PinSetMode(pin core.PinID, mode core.PinMode) {
	if mode == core.OutputPin {
		io.ports.setDDR(pin)
	} else if mode == core.InputPin {
		io.ports.clearDDR(pin)
	}
}

// PinSetPullup drives the PORT bit, which enables the pull-up of a pin that is
// already configured as input.
func (io *IO) PinSetPullup(pin core.PinID, mode core.PullupMode) {
	if mode == core.PullUp {
		io.ports.setPORT(pin)
	} else if mode == core.PullNone {
		io.ports.clearPORT(pin)
	} else {
		io.notImplemented()
	}
}

// Digital

// DigitalWrite sets or clears the PORT bit of pin.
func (io *IO) DigitalWrite(pin core.PinID, value bool) {
	if value {
		io.ports.setPORT(pin)
	} else {
		io.ports.clearPORT(pin)
	}
}

// DigitalRead returns the PIN bit of pin.
func (io *IO) DigitalRead(pin core.PinID) bool {
	return io.ports.getPIN(pin)
}

// Analog

// AnalogRead is a stub returning 0.
func (io *IO) AnalogRead(pin core.PinID) int32 {
	io.notImplemented()
	return 0
}

// PwmWrite is a stub; the pin is left untouched.
func (io *IO) PwmWrite(pin core.PinID, dutyPercent int32) {
	io.notImplemented()
}

// Timer

// TimerCurrentMs returns the tick timer count in milliseconds.
func (io *IO) TimerCurrentMs() int64 {
	return io.timer.CurrentMs()
}

// AttachExternalInterrupt is a stub; fn is never called.
func (io *IO) AttachExternalInterrupt(irq uint8, mode core.InterruptMode, fn core.InterruptFunc, user any) {
	io.notImplemented()
}

// Capabilities reports digital IO, pull-ups and the timer.
func (io *IO) Capabilities() core.Capability {
	return core.CapDigital | core.CapPullup | core.CapTimer
}
