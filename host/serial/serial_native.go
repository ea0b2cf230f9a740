//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// NativePort is the host end of a loader UART opened through tarm/serial.
// The port is raw 8N1 with no flow control, matching the board firmware.
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens cfg.Device at cfg.Baud. A non-zero cfg.ReadTimeout makes Read
// return empty instead of blocking while the board is silent, which is
// most of the time during a bus run.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("open loader port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read returns reply bytes from the board. tarm/serial signals an expired
// read timeout with io.EOF; that becomes (n, nil) so the uploader's reply
// reader keeps polling instead of treating the link as closed.
func (p *NativePort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// Write sends command lines and image chunks. It blocks until the driver
// has accepted all of b.
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the device. It also ends the uploader's reply reader.
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush drops stale reply bytes and any unsent image data, e.g. before a
// new session on a board that was reset mid-transfer.
func (p *NativePort) Flush() error {
	return p.port.Flush()
}
