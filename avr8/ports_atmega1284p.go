//go:build avr && atmega1284p

package avr8

import "device/avr"

const cpuFrequency = 20000000

const mcuName = "atmega1284p"

func hardwarePorts() PortTable {
	return PortTable{
		{Name: 'A', DDR: avr.DDRA, PIN: avr.PINA, PORT: avr.PORTA},
		{Name: 'B', DDR: avr.DDRB, PIN: avr.PINB, PORT: avr.PORTB},
		{Name: 'C', DDR: avr.DDRC, PIN: avr.PINC, PORT: avr.PORTC},
		{Name: 'D', DDR: avr.DDRD, PIN: avr.PIND, PORT: avr.PORTD},
	}
}
