//go:build avr

package main

import (
	"machine"

	"avrio/avr8"
	"avrio/core"
	"avrio/protocol"
)

const baudRate = 115200

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Reports kept on the chip for post-mortem inspection with a debugger
	debugRing *core.DebugRing

	uart = machine.Serial
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})

	console := core.NewConsole(protocol.Version)
	io := avr8.NewHardware(console)
	console.SetIO(io)
	console.DescribeChip(avr8.MCU(), avr8.CPUFrequency(), len(io.Ports()))

	debugRing = core.NewDebugRing(io.TimerCurrentMs)
	console.SetLocalDebugger(debugRing)

	inputBuffer = protocol.NewFifoBuffer(protocol.MessageMax)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, console.Dispatch)
	transport.SetResetCallback(func() {
		// Clear buffers on host reset
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	transport.SetFlushCallback(writeUART)
	console.SetSender(transport)

	for {
		for uart.Buffered() > 0 {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			if inputBuffer.WriteByte(b) != nil {
				debugRing.EmitDebug(core.DebugLevelError, core.DebugBufferOverflow)
				break
			}
		}

		if inputBuffer.Available() > 0 {
			transport.Receive(inputBuffer)
		}

		// Responses without an ACK, e.g. encoded outside a frame
		writeUART()
	}
}

// writeUART sends everything encoded since the last call
func writeUART() {
	if outputBuffer.Overflowed() {
		debugRing.EmitDebug(core.DebugLevelError, core.DebugBufferOverflow)
	}
	if data := outputBuffer.Result(); len(data) > 0 {
		uart.Write(data)
	}
	outputBuffer.Reset()
}
