package sim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"avrio/board"
	"avrio/core"
	"avrio/protocol"
)

// Link runs the device side of the protocol for a simulated chip over a byte
// stream, the way the firmware main loop does over its UART
type Link struct {
	Chip    *Chip
	Console *core.Console
	Ring    *core.DebugRing

	transport *protocol.Transport
	input     *protocol.FifoBuffer
	output    *protocol.ScratchOutput
	rw        io.ReadWriter
	writeErr  error
}

// NewLink builds a chip for b with a console bound to rw
func NewLink(b *board.Board, rw io.ReadWriter, version string) *Link {
	console := core.NewConsole(version)
	chip := NewChip(b, console)
	console.SetIO(chip.IO)
	console.DescribeChip(b.MCU, b.CPUFrequency, len(b.Ports))

	l := &Link{
		Chip:    chip,
		Console: console,
		Ring:    core.NewDebugRing(chip.Ticks.CurrentMs),
		input:   protocol.NewFifoBuffer(protocol.MessageMax * 2),
		output:  protocol.NewScratchOutput(),
		rw:      rw,
	}
	console.SetLocalDebugger(l.Ring)
	l.transport = protocol.NewTransport(l.output, console.Dispatch)
	l.transport.SetFlushCallback(l.flush)
	console.SetSender(l.transport)
	return l
}

func (l *Link) flush() {
	if l.output.Overflowed() {
		l.Ring.EmitDebug(core.DebugLevelError, core.DebugBufferOverflow)
	}
	if data := l.output.Result(); len(data) > 0 && l.writeErr == nil {
		_, l.writeErr = l.rw.Write(data)
	}
	l.output.Reset()
}

// Stats returns the device transport counters. Only call it after Serve returns.
func (l *Link) Stats() protocol.TransportStats {
	return l.transport.Stats()
}

// Serve reads frames until ctx is done or the stream fails. Timer1 runs in its
// own goroutine for the lifetime of Serve.
func (l *Link) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.Chip.Timer1.Run(ctx)

	if c, ok := l.rw.(io.Closer); ok {
		go func() {
			<-ctx.Done()
			c.Close()
		}()
	}

	buf := make([]byte, protocol.MessageLengthMax)
	for {
		n, err := l.rw.Read(buf)
		if n > 0 {
			if l.input.Write(buf[:n]) < n {
				l.Ring.EmitDebug(core.DebugLevelError, core.DebugBufferOverflow)
			}
			l.transport.Receive(l.input)
		}
		if l.writeErr != nil {
			return fmt.Errorf("write: %w", l.writeErr)
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
