//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() InterruptState {
	return InterruptState(interrupt.Disable())
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state InterruptState) {
	interrupt.Restore(interrupt.State(state))
}
