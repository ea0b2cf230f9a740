// Package config loads the host tool configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"threewire/host/serial"
	"threewire/protocol"
)

type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Upload UploadConfig `yaml:"upload"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- UPLOAD ----

type UploadConfig struct {
	Image          string `yaml:"image"`
	PadByte        *uint8 `yaml:"pad_byte"` // nil => 0xFF
	FirstCommand   string `yaml:"first_command"`
	Boot           *bool  `yaml:"boot"` // nil => true
	ReplyTimeoutMs int    `yaml:"reply_timeout_ms"`
	BootTimeoutMs  int    `yaml:"boot_timeout_ms"`
}

const (
	DefaultDevice         = "/dev/ttyACM0"
	DefaultReadTimeoutMs  = 100
	DefaultReplyTimeoutMs = 5000
	DefaultBootTimeoutMs  = 300000
	DefaultPadByte        = 0xFF
)

// Load reads path, applies defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills in missing values
func ApplyDefaults(cfg *Config) {
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = DefaultDevice
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = serial.DefaultBaud
	}
	if cfg.Serial.ReadTimeoutMs == 0 {
		cfg.Serial.ReadTimeoutMs = DefaultReadTimeoutMs
	}

	if cfg.Upload.PadByte == nil {
		pad := uint8(DefaultPadByte)
		cfg.Upload.PadByte = &pad
	}
	if cfg.Upload.FirstCommand == "" {
		cfg.Upload.FirstCommand = "TRANSFER"
	}
	if cfg.Upload.Boot == nil {
		boot := true
		cfg.Upload.Boot = &boot
	}
	if cfg.Upload.ReplyTimeoutMs == 0 {
		cfg.Upload.ReplyTimeoutMs = DefaultReplyTimeoutMs
	}
	if cfg.Upload.BootTimeoutMs == 0 {
		cfg.Upload.BootTimeoutMs = DefaultBootTimeoutMs
	}
}

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial: baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeoutMs < 0 {
		return fmt.Errorf("serial: read_timeout_ms must not be negative")
	}

	if _, known := protocol.ReplyFor(cfg.Upload.FirstCommand + "\n"); !known {
		return fmt.Errorf("upload: first_command %q is not TRANSFER or BOOT3WB", cfg.Upload.FirstCommand)
	}
	if cfg.Upload.ReplyTimeoutMs < 0 || cfg.Upload.BootTimeoutMs < 0 {
		return fmt.Errorf("upload: timeouts must not be negative")
	}
	if cfg.Upload.Image != "" {
		st, err := os.Stat(cfg.Upload.Image)
		if err != nil {
			return fmt.Errorf("upload: image: %w", err)
		}
		if st.Size() > protocol.ImageSize {
			return fmt.Errorf("upload: image %s is %d bytes, limit %d",
				cfg.Upload.Image, st.Size(), protocol.ImageSize)
		}
	}
	return nil
}

// SerialPort returns the serial port settings
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeoutMs,
	}
}

// ReplyTimeout returns the reply timeout as a duration
func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.Upload.ReplyTimeoutMs) * time.Millisecond
}

// BootTimeout returns the boot completion timeout as a duration
func (c *Config) BootTimeout() time.Duration {
	return time.Duration(c.Upload.BootTimeoutMs) * time.Millisecond
}
