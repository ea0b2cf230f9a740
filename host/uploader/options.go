package uploader

import (
	"time"

	"threewire/protocol"
)

// Config holds the uploader configuration.
type Config struct {
	// ProgressCallback is called as the upload advances (optional)
	ProgressCallback ProgressCallback

	// ReplyTimeout bounds the wait for a command reply or data_ack
	ReplyTimeout time.Duration

	// BootTimeout bounds the wait for bootload_success once the bus runs.
	// The default covers 64 bytes at 400ms per bit with margin.
	BootTimeout time.Duration

	// ChunkSize is the number of image bytes written per port write
	ChunkSize int

	// PadByte fills the image up to protocol.ImageSize
	PadByte byte

	// FirstCommand is sent before the image
	FirstCommand string

	// Boot selects BOOT3WB (true) or TRANSFER (false) after the image
	Boot bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReplyTimeout: 5 * time.Second,
		BootTimeout:  5 * time.Minute,
		ChunkSize:    256,
		PadByte:      0xFF,
		FirstCommand: protocol.CommandTransfer,
		Boot:         true,
	}
}

// Option is a functional option for configuring the Uploader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track upload progress.
//
// Example:
//
//	up := uploader.New(port,
//	    uploader.WithProgressCallback(func(p uploader.Progress) {
//	        fmt.Printf("%s %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithReplyTimeout sets the timeout for command replies and data_ack.
func WithReplyTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReplyTimeout = timeout
		}
	}
}

// WithBootTimeout sets the timeout for bootload_success.
func WithBootTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.BootTimeout = timeout
		}
	}
}

// WithChunkSize sets the write size used while sending the image.
// Sizes outside 1..ImageSize are ignored.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= protocol.ImageSize {
			c.ChunkSize = size
		}
	}
}

// WithPadByte sets the fill byte for images shorter than ImageSize.
func WithPadByte(pad byte) Option {
	return func(c *Config) {
		c.PadByte = pad
	}
}

// WithFirstCommand sets the command line sent before the image.
// A missing line terminator is added.
func WithFirstCommand(line string) Option {
	return func(c *Config) {
		c.FirstCommand = terminate(line)
	}
}

// WithBoot selects whether the command after the image requests boot.
func WithBoot(boot bool) Option {
	return func(c *Config) {
		c.Boot = boot
	}
}
