package avr8

import "avrio/core"

// PinsPerPort is the number of pins sharing one register triple
const PinsPerPort = 8

// PortIndex returns the port number of a logical pin
func PortIndex(pin core.PinID) int {
	return int(pin) / PinsPerPort
}

// BitOffset returns the bit position of a logical pin within its port
func BitOffset(pin core.PinID) uint8 {
	return uint8(pin) % PinsPerPort
}

// BitMask returns the single-bit mask of a logical pin within its port
func BitMask(pin core.PinID) uint8 {
	return 1 << BitOffset(pin)
}

// Locate resolves a logical pin to its port and bit mask.
// The pin is not range checked: callers must keep pin below PinCount.
func (t PortTable) Locate(pin core.PinID) (*Port, uint8) {
	return &t[PortIndex(pin)], BitMask(pin)
}

func (t PortTable) setDDR(pin core.PinID) {
	p, mask := t.Locate(pin)
	p.DDR.SetBits(mask)
}

func (t PortTable) clearDDR(pin core.PinID) {
	p, mask := t.Locate(pin)
	p.DDR.ClearBits(mask)
}

func (t PortTable) setPORT(pin core.PinID) {
	p, mask := t.Locate(pin)
	p.PORT.SetBits(mask)
}

func (t PortTable) clearPORT(pin core.PinID) {
	p, mask := t.Locate(pin)
	p.PORT.ClearBits(mask)
}

func (t PortTable) getPIN(pin core.PinID) bool {
	p, mask := t.Locate(pin)
	return p.PIN.HasBits(mask)
}

// PinName formats a logical pin as its datasheet name, e.g. "PB5"
func (t PortTable) PinName(pin core.PinID) string {
	idx := PortIndex(pin)
	if idx >= len(t) {
		return "P?" + string(rune('0'+BitOffset(pin)))
	}
	return "P" + string(rune(t[idx].Name)) + string(rune('0'+BitOffset(pin)))
}
