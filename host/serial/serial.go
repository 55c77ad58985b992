package serial

import (
	"io"
)

// Port is a byte link to a device. Native serial ports and in-process pipes
// to the simulator both satisfy it.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the device UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud matches the firmware's UART setting
const DefaultBaud = 115200

// DefaultConfig returns a default configuration for the avrio firmware
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}
