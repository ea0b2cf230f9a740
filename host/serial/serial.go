package serial

import (
	"io"
)

// Port is the host side of the loader link: a tarm/serial device from Open,
// or the simulated board wrapped by WrapPort.
type Port interface {
	io.ReadWriteCloser

	// Flush drops buffered bytes in both directions
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; the loader firmware runs its UART at 115200
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud is the loader firmware's UART rate
const DefaultBaud = 115200

// DefaultConfig returns a default configuration for the loader
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100, // 100ms read timeout
	}
}

// WrapPort adapts any io.ReadWriteCloser to Port with a no-op Flush
func WrapPort(rwc io.ReadWriteCloser) Port {
	if p, ok := rwc.(Port); ok {
		return p
	}
	return wrappedPort{rwc}
}

type wrappedPort struct {
	io.ReadWriteCloser
}

func (wrappedPort) Flush() error {
	return nil
}
