package protocol

// CommandHandler decodes and runs one command. data holds the command's
// arguments followed by any further commands of the same frame; the handler
// must consume exactly its own arguments.
type CommandHandler func(cmdID uint16, data *[]byte) error

// TransportStats counts link events since the last Reset
type TransportStats struct {
	Frames        uint32 // valid frames received
	BadFrames     uint32 // length, sequence, sync or CRC errors
	Resyncs       uint32
	HandlerErrors uint32
}

// Transport is the device side of the link. It validates incoming frames,
// dispatches their commands in order, acknowledges every frame and encodes
// outgoing frames into an OutputBuffer. It is not safe for concurrent use;
// firmware drives it from its main loop.
type Transport struct {
	synced  bool
	seq     uint8 // next sequence expected from the host, 0x10..0x1F
	output  OutputBuffer
	handler CommandHandler
	onReset func()
	onFlush func()
	stats   TransportStats
}

// NewTransport creates a synchronized transport expecting sequence 0x10
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		synced:  true,
		seq:     MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive consumes as many complete frames from input as possible. Partial
// frames stay in input for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synced {
			rest, found := skipToSync(data)
			data = rest
			if found {
				t.synced = true
				t.stats.Resyncs++
				t.sendAck()
			}
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
			t.stats.BadFrames++
			continue
		}

		seq := data[MessagePositionSeq]
		frame := data[MessageHeaderSize : n-MessageTrailerSize]
		data = data[n:]
		t.stats.Frames++

		if seq == MessageDest && t.seq != MessageDest {
			// host restarted its sequence
			t.seq = MessageDest
			if t.onReset != nil {
				t.onReset()
			}
		}
		if seq == t.seq {
			t.seq = nextSeq(seq)
			t.parseFrame(frame)
		}
		// a mismatched sequence is answered with the expected one (NAK)
		t.sendAck()
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) parseFrame(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.stats.HandlerErrors++
			t.synced = false
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.synced = false
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			// the rest of the frame cannot be located reliably
			t.stats.HandlerErrors++
			return
		}
	}
}

// sendAck writes an empty frame carrying the next expected sequence and flushes
func (t *Transport) sendAck() {
	hdr := []byte{MessageLengthMin, t.seq}
	tr := trailer(hdr)
	t.output.Output(hdr)
	t.output.Output(tr[:])
	if t.onFlush != nil {
		t.onFlush()
	}
}

// EncodeFrame writes one frame whose payload is produced by frameData
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, t.seq})
	frameData(t.output)

	n := len(t.output.DataSince(start)) + MessageTrailerSize
	t.output.Update(start+MessagePositionLen, uint8(n))

	tr := trailer(t.output.DataSince(start))
	t.output.Output(tr[:])
}

// SendCommand encodes a frame holding one command or response
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its initial state, e.g. after a reconnect
func (t *Transport) Reset() {
	t.synced = true
	t.seq = MessageDest
	t.stats = TransportStats{}
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback sets a callback run when the host restarts its sequence
func (t *Transport) SetResetCallback(callback func()) {
	t.onReset = callback
}

// SetFlushCallback sets a callback run right after each ACK is queued. The
// output then holds the frame's responses followed by the ACK.
func (t *Transport) SetFlushCallback(callback func()) {
	t.onFlush = callback
}

// Stats returns the link counters
func (t *Transport) Stats() TransportStats {
	return t.stats
}

// Synchronized reports whether the transport is in frame sync
func (t *Transport) Synchronized() bool {
	return t.synced
}
