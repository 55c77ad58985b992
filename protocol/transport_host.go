package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrNak             = errors.New("command not acknowledged")
)

// DefaultAckTimeout bounds SendCommand
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler sees every response before it is queued for ReceiveResponse.
// Returning true consumes the response.
type ResponseHandler func(cmdID uint16, data []byte) bool

// Message is one received frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // without header and trailer
	CRC      uint16
}

// HostTransport is the host side of the link. A background goroutine reads the
// port, splits frames and routes ACKs and responses; SendCommand blocks until
// the device acknowledges.
type HostTransport struct {
	port io.ReadWriteCloser

	seq atomic.Uint32 // sequence of the next command, 0x10..0x1F

	// owned by readLoop
	input  *FifoBuffer
	synced bool

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handler   ResponseHandler

	acks      chan *Message
	responses chan *Message

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHostTransport starts reading from port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		input:     NewFifoBuffer(512),
		synced:    true,
		acks:      make(chan *Message, 4),
		responses: make(chan *Message, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	t.seq.Store(MessageDest)

	go t.readLoop()
	return t
}

// SendCommand sends a command and waits up to DefaultAckTimeout for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultAckTimeout)
	defer cancel()
	return t.SendCommandContext(ctx, cmdID, args)
}

// SendCommandContext sends a command and waits for its ACK until ctx is done
func (t *HostTransport) SendCommandContext(ctx context.Context, cmdID uint16, args func(output OutputBuffer)) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	seq := uint8(t.seq.Load())
	msg, err := buildCommandMessage(seq, cmdID, args)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	want := nextSeq(seq)
	for {
		select {
		case ack := <-t.acks:
			if ack.Sequence == want {
				t.seq.Store(uint32(want))
				return nil
			}
			if ack.Sequence == seq {
				return fmt.Errorf("sequence 0x%02x: %w", seq, ErrNak)
			}
			// stale ACK from an earlier resync
		case <-ctx.Done():
			return fmt.Errorf("waiting for ACK: %w", ctx.Err())
		case <-t.stop:
			return ErrTransportClosed
		}
	}
}

// buildCommandMessage frames one command
func buildCommandMessage(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}
	if payload.Overflowed() {
		return nil, fmt.Errorf("payload exceeds %d bytes", MessageMax)
	}

	n := MessageHeaderSize + payload.CurPosition() + MessageTrailerSize
	if n > MessageLengthMax {
		return nil, fmt.Errorf("message too long: %d bytes (max %d)", n, MessageLengthMax)
	}

	var buf bytes.Buffer
	buf.Grow(n)
	buf.WriteByte(uint8(n))
	buf.WriteByte(seq)
	buf.Write(payload.Result())
	tr := trailer(buf.Bytes())
	buf.Write(tr[:])
	return buf.Bytes(), nil
}

// ReceiveResponse returns the next unconsumed response
func (t *HostTransport) ReceiveResponse(ctx context.Context) (*Message, error) {
	select {
	case resp := <-t.responses:
		return resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for response: %w", ctx.Err())
	case <-t.stop:
		return nil, ErrTransportClosed
	}
}

// SetResponseHandler installs a handler for responses
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.handler = handler
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			t.processMessages()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			select {
			case <-t.stop:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

func (t *HostTransport) processMessages() {
	data := t.input.Data()

	for len(data) > 0 {
		if !t.synced {
			rest, found := skipToSync(data)
			data = rest
			t.synced = found
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n := scanFrame(data)
		if n == 0 {
			break
		}
		if n < 0 {
			t.synced = false
			continue
		}

		payload := make([]byte, n-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:n-MessageTrailerSize])
		t.dispatch(&Message{
			Length:   data[MessagePositionLen],
			Sequence: data[MessagePositionSeq],
			Payload:  payload,
			CRC:      uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1]),
		})
		data = data[n:]
	}

	if consumed := t.input.Available() - len(data); consumed > 0 {
		t.input.Pop(consumed)
	}
}

func (t *HostTransport) dispatch(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.acks <- msg:
		default:
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.handler
	t.handlerMu.RUnlock()
	if handler != nil {
		data := msg.Payload
		if cmdID, err := DecodeVLQUint(&data); err == nil && handler(uint16(cmdID), data) {
			return
		}
	}

	select {
	case t.responses <- msg:
	default:
		// full: drop the oldest
		select {
		case <-t.responses:
		default:
		}
		t.responses <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		err = t.port.Close()
		<-t.done
	})
	return err
}

// Reset restarts the command sequence and drops queued messages
func (t *HostTransport) Reset() {
	t.seq.Store(MessageDest)
	for len(t.acks) > 0 {
		<-t.acks
	}
	for len(t.responses) > 0 {
		<-t.responses
	}
}

// CurrentSequence returns the sequence of the next command
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(t.seq.Load())
}
