package core

import (
	"errors"

	"avrio/protocol"
)

// Sender is the outgoing half of a link. *protocol.Transport implements it.
type Sender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

// IdentifyChunkMax is the largest dictionary chunk that still fits one frame
// next to the identify_response header
const IdentifyChunkMax = 40

// ErrInvalidPin is returned by Dispatch for a pin the chip does not have
var ErrInvalidPin = errors.New("invalid pin")

// Console exposes an IO binding as protocol commands. Handlers run on the
// goroutine that drives the transport; Console itself does no locking beyond
// what the registry, dictionary and debug filter provide.
type Console struct {
	registry *CommandRegistry
	dict     *Dictionary
	io       IO
	out      Sender
	filter   *LevelFilter
	local    Debugger
	pinCount int

	idIdentifyResponse uint16
	idCapabilities     uint16
	idDigitalState     uint16
	idAnalogState      uint16
	idTimeMs           uint16
	idDebug            uint16
}

// NewConsole registers the command set and builds the dictionary skeleton.
// Attach an IO with SetIO and a link with SetSender before dispatching.
func NewConsole(version string) *Console {
	c := &Console{registry: NewCommandRegistry()}
	c.dict = NewDictionary(c.registry, version)
	c.filter = NewLevelFilter(DebugLevelError, DebugFunc(c.sendDebug))

	r := c.registry
	// IDs 0 and 1 are fixed so a host can bootstrap without a dictionary
	c.idIdentifyResponse = r.RegisterResponse("identify_response", "offset=%u data=%*s")
	r.Register("identify", "offset=%u count=%c", c.handleIdentify)

	r.Register("get_capabilities", "", c.handleGetCapabilities)
	r.Register("pin_set_mode", "pin=%c mode=%c", c.handlePinSetMode)
	r.Register("pin_set_pullup", "pin=%c mode=%c", c.handlePinSetPullup)
	r.Register("digital_write", "pin=%c value=%c", c.handleDigitalWrite)
	r.Register("digital_read", "pin=%c", c.handleDigitalRead)
	r.Register("analog_read", "pin=%c", c.handleAnalogRead)
	r.Register("pwm_write", "pin=%c duty=%i", c.handlePwmWrite)
	r.Register("serial_begin", "dev=%c baud=%i", c.handleSerialBegin)
	r.Register("get_time", "", c.handleGetTime)
	r.Register("set_debug_level", "level=%c", c.handleSetDebugLevel)

	c.idCapabilities = r.RegisterResponse("capabilities", "caps=%u")
	c.idDigitalState = r.RegisterResponse("digital_state", "pin=%c value=%c")
	c.idAnalogState = r.RegisterResponse("analog_state", "pin=%c value=%i")
	c.idTimeMs = r.RegisterResponse("time_ms", "high=%u low=%u")
	c.idDebug = r.RegisterResponse("debug", "level=%c id=%c")

	c.dict.AddEnumeration("pin_mode", []string{InputPin.String(), OutputPin.String()})
	c.dict.AddEnumeration("pullup_mode", []string{PullNone.String(), PullUp.String()})
	c.dict.AddEnumeration("debug_level", []string{
		DebugLevelError.String(), DebugLevelInfo.String(),
		DebugLevelDetailed.String(), DebugLevelVeryDetailed.String(),
	})
	c.dict.AddEnumeration("debug_id", []string{
		DebugInvalid.String(), DebugIoOperationNotImplemented.String(),
		DebugUnknownCommand.String(), DebugMalformedCommand.String(),
		DebugBufferOverflow.String(), DebugInvalidPin.String(),
	})
	return c
}

// SetIO sets the binding that commands operate on
func (c *Console) SetIO(io IO) {
	c.io = io
}

// SetSender sets the link used for responses and debug reports
func (c *Console) SetSender(out Sender) {
	c.out = out
}

// SetLocalDebugger adds a sink that sees every forwarded report, e.g. a DebugRing
func (c *Console) SetLocalDebugger(d Debugger) {
	c.local = d
}

// DescribeChip records the chip constants in the dictionary. Pin arguments at or
// above 8*portCount are rejected from then on.
func (c *Console) DescribeChip(mcu string, clockHz uint32, portCount int) {
	c.pinCount = portCount * 8
	c.dict.AddConstant("MCU", mcu)
	c.dict.AddConstant("CLOCK_FREQ", clockHz)
	c.dict.AddConstant("PORT_COUNT", portCount)
	c.dict.AddConstant("PIN_COUNT", portCount*8)
	c.dict.Build()
}

// Registry returns the command registry
func (c *Console) Registry() *CommandRegistry { return c.registry }

// Dictionary returns the dictionary served by identify
func (c *Console) Dictionary() *Dictionary { return c.dict }

// DebugLevel returns the current forwarding threshold
func (c *Console) DebugLevel() DebugLevel { return c.filter.Level() }

// EmitDebug filters a report by the current level and forwards it to the host
func (c *Console) EmitDebug(level DebugLevel, id DebugID) {
	c.filter.EmitDebug(level, id)
}

func (c *Console) sendDebug(level DebugLevel, id DebugID) {
	if c.local != nil {
		c.local.EmitDebug(level, id)
	}
	c.send(c.idDebug, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(level))
		protocol.EncodeVLQUint(output, uint32(id))
	})
}

func (c *Console) send(id uint16, args func(output protocol.OutputBuffer)) {
	if c.out != nil {
		c.out.SendCommand(id, args)
	}
}

// Dispatch runs one command. It matches protocol.CommandHandler so it can be
// handed to protocol.NewTransport directly.
func (c *Console) Dispatch(cmdID uint16, data *[]byte) error {
	err := c.registry.Dispatch(cmdID, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownCommand):
		c.EmitDebug(DebugLevelError, DebugUnknownCommand)
	case errors.Is(err, ErrInvalidPin):
		c.EmitDebug(DebugLevelError, DebugInvalidPin)
	default:
		c.EmitDebug(DebugLevelError, DebugMalformedCommand)
	}
	return err
}

func decodeArgs(data *[]byte, args ...*uint32) error {
	for _, a := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*a = v
	}
	return nil
}

// checkPin converts a decoded pin argument, rejecting pins past the chip's last
// port. Before DescribeChip only the PinID range is checked.
func (c *Console) checkPin(pin uint32) (PinID, error) {
	limit := uint32(c.pinCount)
	if limit == 0 || limit > 256 {
		limit = 256
	}
	if pin >= limit {
		return 0, ErrInvalidPin
	}
	return PinID(pin), nil
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *Console) handleIdentify(data *[]byte) error {
	var offset, count uint32
	if err := decodeArgs(data, &offset, &count); err != nil {
		return err
	}
	if count > IdentifyChunkMax {
		count = IdentifyChunkMax
	}
	chunk := c.dict.GetChunk(offset, uint8(count))
	c.send(c.idIdentifyResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func (c *Console) handleGetCapabilities(data *[]byte) error {
	caps := c.io.Capabilities()
	c.send(c.idCapabilities, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(caps))
	})
	return nil
}

func (c *Console) handlePinSetMode(data *[]byte) error {
	var pin, mode uint32
	if err := decodeArgs(data, &pin, &mode); err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	c.io.PinSetMode(id, PinMode(mode))
	return nil
}

func (c *Console) handlePinSetPullup(data *[]byte) error {
	var pin, mode uint32
	if err := decodeArgs(data, &pin, &mode); err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	c.io.PinSetPullup(id, PullupMode(mode))
	return nil
}

func (c *Console) handleDigitalWrite(data *[]byte) error {
	var pin, value uint32
	if err := decodeArgs(data, &pin, &value); err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	c.io.DigitalWrite(id, value != 0)
	return nil
}

func (c *Console) handleDigitalRead(data *[]byte) error {
	var pin uint32
	if err := decodeArgs(data, &pin); err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	value := c.io.DigitalRead(id)
	c.send(c.idDigitalState, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, pin)
		protocol.EncodeVLQUint(output, boolArg(value))
	})
	return nil
}

func (c *Console) handleAnalogRead(data *[]byte) error {
	var pin uint32
	if err := decodeArgs(data, &pin); err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	value := c.io.AnalogRead(id)
	c.send(c.idAnalogState, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, pin)
		protocol.EncodeVLQInt(output, value)
	})
	return nil
}

func (c *Console) handlePwmWrite(data *[]byte) error {
	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	duty, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	id, err := c.checkPin(pin)
	if err != nil {
		return err
	}
	c.io.PwmWrite(id, duty)
	return nil
}

func (c *Console) handleSerialBegin(data *[]byte) error {
	dev, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	baud, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	c.io.SerialBegin(uint8(dev), baud)
	return nil
}

func (c *Console) handleGetTime(data *[]byte) error {
	ms := c.io.TimerCurrentMs()
	c.send(c.idTimeMs, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(uint64(ms)>>32))
		protocol.EncodeVLQUint(output, uint32(ms))
	})
	return nil
}

func (c *Console) handleSetDebugLevel(data *[]byte) error {
	var level uint32
	if err := decodeArgs(data, &level); err != nil {
		return err
	}
	c.filter.SetLevel(DebugLevel(level))
	return nil
}
