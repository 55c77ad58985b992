//go:build !tinygo

package core

// disableInterrupts is a no-op on regular Go; tests use a simulated controller
func disableInterrupts() InterruptState {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state InterruptState) {}
