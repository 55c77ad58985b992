// Package sim simulates the parts of an AVR8 chip that the avr8 binding touches:
// the I/O data space, the interrupt controller and Timer1. It backs the tests and
// the host-side simulator.
package sim

import (
	"fmt"
	"sync"
)

// Memory is a byte addressed data space. Every register access is one locked
// transaction, so SetBits and ClearBits are atomic like SBI/CBI on hardware.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	pins  map[uint16]*wiring // keyed by PIN address
	ports map[uint16]*wiring // keyed by PORT address
}

// wiring is the electrical model of one port: what drives the PIN register
type wiring struct {
	pin, ddr, port uint16
	driven         uint8 // bits driven from outside the chip
	level          uint8 // level of the driven bits
}

// NewMemory creates a zeroed data space of size bytes
func NewMemory(size uint32) *Memory {
	return &Memory{
		data:  make([]byte, size),
		pins:  make(map[uint16]*wiring),
		ports: make(map[uint16]*wiring),
	}
}

// AttachPort wires a DDR/PIN/PORT triple so that reading PIN returns the
// output level of output pins, the external level of driven input pins and the
// pull-up state (PORT bit) of undriven input pins.
func (m *Memory) AttachPort(pin, ddr, port uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &wiring{pin: pin, ddr: ddr, port: port}
	m.pins[pin] = w
	m.ports[port] = w
}

// Drive sets the external level of the masked bits of the port whose PIN
// register is at pinAddr
func (m *Memory) Drive(pinAddr uint16, mask uint8, high bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.pins[pinAddr]
	if !ok {
		return fmt.Errorf("no port wired at PIN address 0x%x", pinAddr)
	}
	w.driven |= mask
	if high {
		w.level |= mask
	} else {
		w.level &^= mask
	}
	return nil
}

// Release stops driving the masked bits
func (m *Memory) Release(pinAddr uint16, mask uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.pins[pinAddr]
	if !ok {
		return fmt.Errorf("no port wired at PIN address 0x%x", pinAddr)
	}
	w.driven &^= mask
	w.level &^= mask
	return nil
}

// Peek reads a byte without side effects
func (m *Memory) Peek(addr uint16) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(addr)
}

// Poke writes a byte
func (m *Memory) Poke(addr uint16, value uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(addr, value)
}

// Register returns a register view of one address
func (m *Memory) Register(addr uint16) *Register {
	return &Register{mem: m, addr: addr}
}

// Size returns the size of the data space in bytes
func (m *Memory) Size() int {
	return len(m.data)
}

// load must be called with mu held
func (m *Memory) load(addr uint16) uint8 {
	if w, ok := m.pins[addr]; ok {
		ddr := m.data[w.ddr]
		port := m.data[w.port]
		input := (w.driven & w.level) | (^w.driven & port)
		return (port & ddr) | (input &^ ddr)
	}
	return m.data[addr]
}

// store must be called with mu held. PIN registers of wired ports are read only.
func (m *Memory) store(addr uint16, value uint8) {
	if _, ok := m.pins[addr]; ok {
		return
	}
	m.data[addr] = value
}

// Register is one 8-bit register in a simulated data space
type Register struct {
	mem  *Memory
	addr uint16
}

func (r *Register) Get() uint8 {
	return r.mem.Peek(r.addr)
}

func (r *Register) Set(value uint8) {
	r.mem.Poke(r.addr, value)
}

func (r *Register) SetBits(mask uint8) {
	r.mem.mu.Lock()
	defer r.mem.mu.Unlock()
	r.mem.store(r.addr, r.mem.load(r.addr)|mask)
}

func (r *Register) ClearBits(mask uint8) {
	r.mem.mu.Lock()
	defer r.mem.mu.Unlock()
	r.mem.store(r.addr, r.mem.load(r.addr)&^mask)
}

func (r *Register) HasBits(mask uint8) bool {
	return r.Get()&mask != 0
}

// Address returns the data space address of the register
func (r *Register) Address() uint16 {
	return r.addr
}
