// Package shell provides an ishell backed interactive loader console.
package shell

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"threewire/host/uploader"
	"threewire/protocol"
)

// Shell drives one loader interactively.
type Shell struct {
	Shell    *ishell.Shell
	Uploader *uploader.Uploader
	Timeout  time.Duration
}

const (
	shellKey = "$shell"
	prompt   = "3wb > "
)

var commands = []*ishell.Cmd{
	&TransferCmd,
	&BootCmd,
	&SendCmd,
	&WaitCmd,
	&UploadCmd,
}

var (
	// TransferCmd sends TRANSFER.
	TransferCmd = ishell.Cmd{
		Name: "transfer",
		Help: "send TRANSFER and wait for transfer_started",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.report(c, s.Transfer())
		},
	}

	// BootCmd sends BOOT3WB.
	BootCmd = ishell.Cmd{
		Name: "boot",
		Help: "send BOOT3WB and wait for bootload_started",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.report(c, s.Boot())
		},
	}

	// SendCmd sends an image file.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "FILE: send the padded image and wait for data_ack",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			image, err := ReadImage(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			s.report(c, s.Send(image))
		},
	}

	// WaitCmd waits for the bus to finish.
	WaitCmd = ishell.Cmd{
		Name: "wait",
		Help: "wait for bootload_success",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Println("waiting for the bus to finish ...")
			s.report(c, s.Wait())
		},
	}

	// UploadCmd runs the whole sequence.
	UploadCmd = ishell.Cmd{
		Name: "upload",
		Help: "FILE: run the complete transfer and boot sequence",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			image, err := ReadImage(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			s.report(c, s.Uploader.Upload(context.Background(), image))
		},
	}
)

// Commands returns the loader commands registered on every shell
func Commands() []*ishell.Cmd {
	return commands
}

// New creates a shell around up. Timeout bounds the transfer and boot
// commands; send, wait and upload rely on the uploader's own timeouts.
func New(up *uploader.Uploader, timeout time.Duration) *Shell {
	s := &Shell{
		Shell:    ishell.New(),
		Uploader: up,
		Timeout:  timeout,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the given command, or the interactive shell without args.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	s.Shell.Println(Banner())
	s.Shell.Run()
	return nil
}

// Transfer sends TRANSFER, bounded by s.Timeout
func (s *Shell) Transfer() error {
	return s.do(func(ctx context.Context) error {
		return s.Uploader.SendCommand(ctx, protocol.CommandTransfer)
	})
}

// Boot sends BOOT3WB, bounded by s.Timeout
func (s *Shell) Boot() error {
	return s.do(func(ctx context.Context) error {
		return s.Uploader.SendCommand(ctx, protocol.CommandBoot)
	})
}

// Send writes the padded image. It is not bounded by s.Timeout: 64 KiB
// takes about 6s at 115200 baud, and the uploader limits the data_ack wait.
func (s *Shell) Send(image []byte) error {
	return s.Uploader.SendImage(context.Background(), image)
}

// Wait blocks until bootload_success or the uploader's boot timeout
func (s *Shell) Wait() error {
	return s.Uploader.WaitComplete(context.Background())
}

// Banner is printed when the interactive shell starts
func Banner() string {
	return "3-wire bus loader shell v" + protocol.Version + ", type 'help' for commands"
}

func (s *Shell) do(fn func(ctx context.Context) error) error {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (s *Shell) report(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

// ReadImage reads an image file and rejects files over protocol.ImageSize
func ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > protocol.ImageSize {
		return nil, fmt.Errorf("%s: %w: %d bytes", path, uploader.ErrImageTooLarge, len(data))
	}
	return data, nil
}
