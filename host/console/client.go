// Package console is the host side of the remote IO link: it retrieves the
// device dictionary and drives the IO commands over a HostTransport.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"avrio/core"
	"avrio/host/serial"
	"avrio/protocol"
)

var (
	// ErrNotConnected is returned by calls made before Connect or after Close
	ErrNotConnected = errors.New("not connected to device")

	// ErrNoDictionary is returned by IO calls made before RetrieveDictionary
	ErrNoDictionary = errors.New("dictionary not loaded")
)

// Bootstrap IDs, valid before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = core.IdentifyChunkMax
)

// DefaultTimeout bounds each call, including its acknowledgement
const DefaultTimeout = 2 * time.Second

// DebugHandler receives debug reports forwarded by the device
type DebugHandler func(level core.DebugLevel, id core.DebugID)

// Client talks to one device. Calls are serialized.
type Client struct {
	mu        sync.Mutex
	transport *protocol.HostTransport
	dict      *Dictionary
	raw       []byte
	timeout   time.Duration

	debugMu sync.RWMutex
	debugID int32 // -1 until the dictionary is loaded
	onDebug DebugHandler
}

// NewClient creates an unconnected client
func NewClient() *Client {
	return &Client{timeout: DefaultTimeout, debugID: -1}
}

// SetTimeout changes the per-call timeout
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Open connects to a device on a serial port
func (c *Client) Open(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	return c.Connect(port)
}

// Connect takes ownership of port and starts the transport
func (c *Client) Connect(port io.ReadWriteCloser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		return errors.New("already connected")
	}
	c.transport = protocol.NewHostTransport(port)
	c.transport.SetResponseHandler(c.handleResponse)
	return nil
}

// Close stops the transport and closes the port
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return ErrNotConnected
	}
	err := c.transport.Close()
	c.transport = nil
	return err
}

// OnDebug installs the handler for forwarded debug reports
func (c *Client) OnDebug(fn DebugHandler) {
	c.debugMu.Lock()
	c.onDebug = fn
	c.debugMu.Unlock()
}

// handleResponse consumes debug frames; everything else is queued for the
// call waiting on it
func (c *Client) handleResponse(cmdID uint16, data []byte) bool {
	c.debugMu.RLock()
	debugID, fn := c.debugID, c.onDebug
	c.debugMu.RUnlock()
	if debugID < 0 || int32(cmdID) != debugID {
		return false
	}
	level, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return true
	}
	id, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return true
	}
	if fn != nil {
		fn(core.DebugLevel(level), core.DebugID(id))
	}
	return true
}

// RetrieveDictionary reads the dictionary in identify chunks and parses it
func (c *Client) RetrieveDictionary(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return ErrNotConnected
	}

	var buf bytes.Buffer
	offset := uint32(0)
	for {
		chunk, err := c.identify(ctx, offset)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	dict, err := ParseDictionary(buf.Bytes())
	if err != nil {
		return err
	}
	c.raw = buf.Bytes()
	c.dict = dict

	debugID := int32(-1)
	if id, ok := dict.ResponseID("debug"); ok {
		debugID = int32(id)
	}
	c.debugMu.Lock()
	c.debugID = debugID
	c.debugMu.Unlock()
	return nil
}

func (c *Client) identify(ctx context.Context, offset uint32) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.transport.SendCommandContext(ctx, identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, identifyChunk)
	})
	if err != nil {
		return nil, err
	}
	for {
		data, err := c.await(ctx, identifyResponseID)
		if err != nil {
			return nil, err
		}
		respOffset, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return nil, err
		}
		if respOffset != offset {
			continue
		}
		return protocol.DecodeVLQBytes(&data)
	}
}

// Dictionary returns the parsed dictionary, nil before RetrieveDictionary
func (c *Client) Dictionary() *Dictionary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dict
}

// RawDictionary returns the dictionary JSON as received
func (c *Client) RawDictionary() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

// await returns the arguments of the next response with the given ID.
// Other queued responses are discarded.
func (c *Client) await(ctx context.Context, respID uint16) ([]byte, error) {
	for {
		msg, err := c.transport.ReceiveResponse(ctx)
		if err != nil {
			return nil, err
		}
		data := msg.Payload
		id, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			continue
		}
		if uint16(id) == respID {
			return data, nil
		}
	}
}

// call sends a command and, when response is not empty, waits for it
func (c *Client) call(ctx context.Context, name string, args func(output protocol.OutputBuffer), response string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return nil, ErrNotConnected
	}
	if c.dict == nil {
		return nil, ErrNoDictionary
	}
	cmdID, ok := c.dict.CommandID(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownCommand, name)
	}
	var respID uint16
	if response != "" {
		if respID, ok = c.dict.ResponseID(response); !ok {
			return nil, fmt.Errorf("device has no %s response", response)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.transport.SendCommandContext(ctx, cmdID, args); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if response == "" {
		return nil, nil
	}
	data, err := c.await(ctx, respID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// Capabilities asks which IO operations the device backs with hardware
func (c *Client) Capabilities(ctx context.Context) (core.Capability, error) {
	data, err := c.call(ctx, "get_capabilities", nil, "capabilities")
	if err != nil {
		return 0, err
	}
	caps, err := protocol.DecodeVLQUint(&data)
	return core.Capability(caps), err
}

// PinSetMode configures a pin as input or output
func (c *Client) PinSetMode(ctx context.Context, pin core.PinID, mode core.PinMode) error {
	_, err := c.call(ctx, "pin_set_mode", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
		protocol.EncodeVLQUint(output, uint32(mode))
	}, "")
	return err
}

// PinSetPullup configures the pull resistor of a pin
func (c *Client) PinSetPullup(ctx context.Context, pin core.PinID, mode core.PullupMode) error {
	_, err := c.call(ctx, "pin_set_pullup", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
		protocol.EncodeVLQUint(output, uint32(mode))
	}, "")
	return err
}

// DigitalWrite drives an output pin
func (c *Client) DigitalWrite(ctx context.Context, pin core.PinID, value bool) error {
	_, err := c.call(ctx, "digital_write", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
		protocol.EncodeVLQUint(output, boolArg(value))
	}, "")
	return err
}

// DigitalRead samples a pin
func (c *Client) DigitalRead(ctx context.Context, pin core.PinID) (bool, error) {
	data, err := c.call(ctx, "digital_read", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
	}, "digital_state")
	if err != nil {
		return false, err
	}
	if _, err := protocol.DecodeVLQUint(&data); err != nil {
		return false, err
	}
	value, err := protocol.DecodeVLQUint(&data)
	return value != 0, err
}

// AnalogRead samples an analog channel
func (c *Client) AnalogRead(ctx context.Context, pin core.PinID) (int32, error) {
	data, err := c.call(ctx, "analog_read", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
	}, "analog_state")
	if err != nil {
		return 0, err
	}
	if _, err := protocol.DecodeVLQUint(&data); err != nil {
		return 0, err
	}
	return protocol.DecodeVLQInt(&data)
}

// PwmWrite sets a PWM duty cycle in percent
func (c *Client) PwmWrite(ctx context.Context, pin core.PinID, dutyPercent int32) error {
	_, err := c.call(ctx, "pwm_write", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(pin))
		protocol.EncodeVLQInt(output, dutyPercent)
	}, "")
	return err
}

// SerialBegin opens a device UART
func (c *Client) SerialBegin(ctx context.Context, dev uint8, baud int32) error {
	_, err := c.call(ctx, "serial_begin", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(dev))
		protocol.EncodeVLQInt(output, baud)
	}, "")
	return err
}

// CurrentTimeMs reads the device millisecond counter
func (c *Client) CurrentTimeMs(ctx context.Context) (int64, error) {
	data, err := c.call(ctx, "get_time", nil, "time_ms")
	if err != nil {
		return 0, err
	}
	high, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return 0, err
	}
	low, err := protocol.DecodeVLQUint(&data)
	if err != nil {
		return 0, err
	}
	return int64(uint64(high)<<32 | uint64(low)), nil
}

// SetDebugLevel changes the most verbose level the device forwards
func (c *Client) SetDebugLevel(ctx context.Context, level core.DebugLevel) error {
	_, err := c.call(ctx, "set_debug_level", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(level))
	}, "")
	return err
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
