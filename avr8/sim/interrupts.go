package sim

import (
	"sync"

	"avrio/core"
)

// Vector is an interrupt vector number
type Vector uint8

// VectorTimer1CompA is TIMER1_COMPA in atmega328p numbering
const VectorTimer1CompA Vector = 11

// Interrupts is a simulated interrupt controller. Handlers run with the global
// interrupt lock held, so code between Disable and Restore never observes a
// handler half way through. Disable does not nest.
type Interrupts struct {
	mu         sync.Mutex
	handlers   map[Vector]func()
	dispatched uint64
	unhandled  uint64
}

var _ core.InterruptController = (*Interrupts)(nil)

// NewInterrupts creates a controller with no handlers installed
func NewInterrupts() *Interrupts {
	return &Interrupts{handlers: make(map[Vector]func())}
}

// Handle installs fn as the handler of v
func (c *Interrupts) Handle(v Vector, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[v] = fn
}

// Fire delivers one interrupt on v, waiting while interrupts are disabled
func (c *Interrupts) Fire(v Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn := c.handlers[v]
	if fn == nil {
		c.unhandled++
		return
	}
	c.dispatched++
	fn()
}

func (c *Interrupts) Disable() core.InterruptState {
	c.mu.Lock()
	return 1
}

func (c *Interrupts) Restore(state core.InterruptState) {
	if state != 0 {
		c.mu.Unlock()
	}
}

// Dispatched returns the number of interrupts that reached a handler
func (c *Interrupts) Dispatched() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatched
}

// Unhandled returns the number of interrupts fired on vectors without a handler
func (c *Interrupts) Unhandled() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unhandled
}
