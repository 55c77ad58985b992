package core

// InterruptState is the interrupt enable state saved by Disable
type InterruptState uintptr

// InterruptController suppresses and restores interrupt delivery.
// Code between Disable and Restore cannot be preempted by an interrupt handler.
type InterruptController interface {
	Disable() InterruptState
	Restore(state InterruptState)
}

// CPUInterrupts returns the controller for the CPU this program runs on
func CPUInterrupts() InterruptController {
	return cpuInterrupts{}
}

type cpuInterrupts struct{}

func (cpuInterrupts) Disable() InterruptState {
	return disableInterrupts()
}

func (cpuInterrupts) Restore(state InterruptState) {
	restoreInterrupts(state)
}
