//go:build tinygo && cortexm

package board

import (
	"machine"

	"threewire/core"
)

// GPIODriver implements core.GPIODriver on machine.Pin
type GPIODriver struct {
	// Track configured pins
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewGPIODriver creates a new GPIO driver
func NewGPIODriver() *GPIODriver {
	return &GPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *GPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		// Already configured, this is OK
		return nil
	}

	// Pin numbers map directly to machine.Pin on nRF52 and RP2040
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *GPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return errPinNotConfigured
	}
	machinePin.Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *GPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		// Pin not configured
		return false, nil
	}
	return machinePin.Get(), nil
}
