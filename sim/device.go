package sim

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"threewire/core"
	"threewire/protocol"
)

// Device is a complete simulated loader board
type Device struct {
	cfg  core.BusConfig
	pace time.Duration

	uart    *UART
	gpio    *GPIO
	timer   *Timer
	capture *Capture
	image   *protocol.Buffer
	loader  *core.Loader
}

// Option configures a Device
type Option func(*Device)

// WithBusConfig replaces the default wiring and timing
func WithBusConfig(cfg core.BusConfig) Option {
	return func(d *Device) {
		d.cfg = cfg
	}
}

// WithPace sleeps for pace before every compare event. Zero runs the bus as
// fast as possible; the real event spacing can be had with
// time.Duration(offset) * time.Millisecond.
func WithPace(pace time.Duration) Option {
	return func(d *Device) {
		d.pace = pace
	}
}

// NewDevice builds a device around the core loader
func NewDevice(opts ...Option) *Device {
	d := &Device{
		cfg:   core.DefaultBusConfig(),
		uart:  NewUART(),
		gpio:  NewGPIO(),
		timer: NewTimer(core.TimerFreqNRF52),
		image: protocol.NewBuffer(make([]byte, protocol.ImageSize)),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.capture = NewCapture(d.cfg.Pins)
	d.capture.Attach(d.gpio)

	transport := core.NewUARTTransport(d.uart, d.uart.WaitRx)
	receiver := core.NewFrameReceiver(transport)
	bus := core.NewBusSerializer(d.gpio, d.timer, transport, d.image, d.cfg)
	command := protocol.NewBuffer(make([]byte, protocol.CommandBufferSize))
	d.loader = core.NewLoader(receiver, bus, command, d.image)
	return d
}

// Port returns the host end of the device's serial link
func (d *Device) Port() io.ReadWriteCloser {
	return d.uart.Host()
}

// Serve runs the loader and then the bus until serialization completes.
// If no boot command arrives the bus stays armed and Serve returns nil
// without driving it. Cancelling ctx closes the link.
func (d *Device) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			d.uart.Close()
		case <-stop:
		}
	}()

	started, err := d.loader.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if !started {
		glog.Info("sim: boot not requested, bus left armed")
		return nil
	}

	glog.V(1).Infof("sim: bus started, period %dms", d.cfg.PeriodMS())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.pace > 0 {
			time.Sleep(d.pace)
		}
		fired, err := d.timer.Step()
		if err != nil {
			return err
		}
		if !fired {
			break
		}
	}

	bus := d.loader.Bus()
	byteIndex, _ := bus.Position()
	glog.V(1).Infof("sim: bus %v after %d bytes, %d ticks", bus.State(), byteIndex, d.timer.Elapsed())
	return bus.Err()
}

// Bus returns the device's serializer
func (d *Device) Bus() *core.BusSerializer {
	return d.loader.Bus()
}

// Capture returns the decoder attached to the bus pins
func (d *Device) Capture() *Capture {
	return d.capture
}

// GPIO returns the simulated pin driver
func (d *Device) GPIO() *GPIO {
	return d.gpio
}

// Timer returns the simulated compare timer
func (d *Device) Timer() *Timer {
	return d.timer
}
