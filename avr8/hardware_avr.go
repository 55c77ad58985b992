//go:build avr

package avr8

import (
	"device/avr"
	"runtime/interrupt"

	"avrio/core"
)

// hardwareTimer is the timer bound to the TIMER1_COMPA vector
var hardwareTimer *TickTimer

// NewHardware builds the capability object for the chip this firmware is
// compiled for. It claims Timer1 and its compare A vector. Call it once.
func NewHardware(debug core.Debugger) *IO {
	timer := NewTickTimer(TimerRegisters{
		TCCRB: avr.TCCR1B,
		OCRAH: avr.OCR1AH,
		OCRAL: avr.OCR1AL,
		TIMSK: avr.TIMSK1,
	}, core.CPUInterrupts())

	hardwareTimer = timer
	interrupt.New(avr.IRQ_TIMER1_COMPA, handleTimer1CompA)
	timer.Init(cpuFrequency)

	return New(hardwarePorts(), timer, debug)
}

func handleTimer1CompA(interrupt.Interrupt) {
	hardwareTimer.Tick()
}

// CPUFrequency returns the clock the firmware was built for
func CPUFrequency() uint32 {
	return cpuFrequency
}

// MCU returns the chip name the firmware was built for
func MCU() string {
	return mcuName
}
