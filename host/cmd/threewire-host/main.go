package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"

	"threewire/core"
	"threewire/host/config"
	"threewire/host/serial"
	"threewire/host/shell"
	"threewire/host/uploader"
	"threewire/protocol"
	"threewire/sim"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", config.DefaultDevice, "Serial device path")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	imagePath  = flag.String("image", "", "Image file to upload (at most 65536 bytes)")
	noBoot     = flag.Bool("no-boot", false, "Send TRANSFER instead of BOOT3WB after the image")
	shellMode  = flag.Bool("shell", false, "Start the interactive shell")
	simulate   = flag.Bool("sim", false, "Talk to an in-process simulated device")
	simPace    = flag.Duration("sim-pace", 0, "Delay before each simulated bus event")
	version    = flag.Bool("version", false, "Print the loader protocol version and exit")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *version {
		fmt.Println("threewire-host " + protocol.Version)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			glog.Exitf("config load failed: %v", err)
		}
	}
	applyFlags(cfg)
	if err := config.Validate(cfg); err != nil {
		glog.Exitf("config validation failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	port, err := openPort(ctx, cfg)
	if err != nil {
		glog.Exit(err)
	}
	defer port.Close()

	up := uploader.New(port,
		uploader.WithReplyTimeout(cfg.ReplyTimeout()),
		uploader.WithBootTimeout(cfg.BootTimeout()),
		uploader.WithPadByte(*cfg.Upload.PadByte),
		uploader.WithFirstCommand(cfg.Upload.FirstCommand),
		uploader.WithBoot(*cfg.Upload.Boot),
		uploader.WithProgressCallback(logProgress()),
	)

	if *shellMode {
		if err := shell.New(up, cfg.ReplyTimeout()).Run(flag.Args()...); err != nil {
			glog.Exit(err)
		}
		return
	}

	if cfg.Upload.Image == "" {
		fmt.Fprintln(os.Stderr, "usage: threewire-host [-config file] [-device dev] -image file | -shell")
		flag.PrintDefaults()
		os.Exit(2)
	}
	image, err := shell.ReadImage(cfg.Upload.Image)
	if err != nil {
		glog.Exitf("image: %v", err)
	}
	if err := up.Upload(ctx, image); err != nil {
		glog.Exitf("upload failed: %v", err)
	}
	fmt.Println("bootload_success")
}

// applyFlags lets explicitly set flags override file values
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Serial.Device = *device
		case "baud":
			cfg.Serial.Baud = *baud
		case "image":
			cfg.Upload.Image = *imagePath
		case "no-boot":
			boot := !*noBoot
			cfg.Upload.Boot = &boot
		}
	})
}

func openPort(ctx context.Context, cfg *config.Config) (serial.Port, error) {
	if !*simulate {
		glog.Infof("opening %s at %d baud", cfg.Serial.Device, cfg.Serial.Baud)
		return serial.Open(cfg.SerialPort())
	}

	core.SetDebugWriter(func(s string) { glog.V(1).Info(s) })
	core.SetDebugEnabled(true)

	dev := sim.NewDevice(sim.WithPace(*simPace))
	go func() {
		if err := dev.Serve(ctx); err != nil {
			glog.Errorf("sim: %v", err)
			return
		}
		core.DumpTrace()
	}()
	glog.Info("using simulated device")
	return serial.WrapPort(dev.Port()), nil
}

// logProgress logs the transfer in 10% steps
func logProgress() uploader.ProgressCallback {
	next := 0.0
	return func(p uploader.Progress) {
		switch p.Phase {
		case uploader.PhaseTransfer:
			if p.Percentage >= next {
				glog.Infof("transfer %5.1f%% (%d/%d bytes)", p.Percentage, p.BytesSent, p.TotalBytes)
				next = p.Percentage + 10
			}
		case uploader.PhaseBooting:
			glog.Infof("image accepted after %v, waiting for the bus", p.ElapsedTime.Round(time.Millisecond))
		default:
			glog.V(1).Infof("phase %s", p.Phase)
		}
	}
}
