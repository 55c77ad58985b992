//go:build avr && atmega328p

package avr8

import "device/avr"

// Arduino Uno / Nano
const cpuFrequency = 16000000

const mcuName = "atmega328p"

func hardwarePorts() PortTable {
	return PortTable{
		{Name: 'B', DDR: avr.DDRB, PIN: avr.PINB, PORT: avr.PORTB},
		{Name: 'C', DDR: avr.DDRC, PIN: avr.PINC, PORT: avr.PORTC},
		{Name: 'D', DDR: avr.DDRD, PIN: avr.PIND, PORT: avr.PORTD},
	}
}
