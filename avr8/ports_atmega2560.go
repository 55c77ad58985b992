//go:build avr && atmega2560

package avr8

import "device/avr"

// Arduino Mega 2560
const cpuFrequency = 16000000

const mcuName = "atmega2560"

// Port G has six pins; pins 54 and 55 are not bonded out.
func hardwarePorts() PortTable {
	return PortTable{
		{Name: 'A', DDR: avr.DDRA, PIN: avr.PINA, PORT: avr.PORTA},
		{Name: 'B', DDR: avr.DDRB, PIN: avr.PINB, PORT: avr.PORTB},
		{Name: 'C', DDR: avr.DDRC, PIN: avr.PINC, PORT: avr.PORTC},
		{Name: 'D', DDR: avr.DDRD, PIN: avr.PIND, PORT: avr.PORTD},
		{Name: 'E', DDR: avr.DDRE, PIN: avr.PINE, PORT: avr.PORTE},
		{Name: 'F', DDR: avr.DDRF, PIN: avr.PINF, PORT: avr.PORTF},
		{Name: 'G', DDR: avr.DDRG, PIN: avr.PING, PORT: avr.PORTG},
		{Name: 'H', DDR: avr.DDRH, PIN: avr.PINH, PORT: avr.PORTH},
		{Name: 'J', DDR: avr.DDRJ, PIN: avr.PINJ, PORT: avr.PORTJ},
		{Name: 'K', DDR: avr.DDRK, PIN: avr.PINK, PORT: avr.PORTK},
		{Name: 'L', DDR: avr.DDRL, PIN: avr.PINL, PORT: avr.PORTL},
	}
}
