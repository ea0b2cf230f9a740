// Package uploader drives the loader protocol from the host: command lines,
// the fixed-size image transfer and the wait for the bus to finish.
package uploader

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"

	"threewire/protocol"
)

// reply is one line read from the device, or the read error that ended the
// reply stream
type reply struct {
	line string
	err  error
}

// Uploader talks to one loader over a serial link.
//
// A background goroutine reads reply lines from the port until the port
// returns an error, so the port should be closed once the Uploader is no
// longer needed.
type Uploader struct {
	port    io.ReadWriter
	config  Config
	replies chan reply
	readErr error
}

// New creates a new Uploader on port with the given options.
//
// Example:
//
//	port, _ := serial.Open(serial.DefaultConfig("/dev/ttyACM0"))
//	up := uploader.New(port, uploader.WithBootTimeout(10*time.Minute))
//	err := up.Upload(ctx, image)
func New(port io.ReadWriter, opts ...Option) *Uploader {
	if port == nil {
		panic("port cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	u := &Uploader{
		port:    port,
		config:  cfg,
		replies: make(chan reply, 8),
	}
	go u.readLoop()
	return u
}

// Config returns the effective configuration
func (u *Uploader) Config() Config {
	return u.config
}

// readLoop splits device output into lines. Zero-length reads are read
// timeouts and are retried. Lines that arrive while the reply queue is full
// are dropped so the loop keeps reading until the port fails.
func (u *Uploader) readLoop() {
	buf := make([]byte, 64)
	var line []byte
	for {
		n, err := u.port.Read(buf)
		for _, b := range buf[:n] {
			line = append(line, b)
			if b == protocol.LineTerminator {
				glog.V(2).Infof("RCV %q", line)
				select {
				case u.replies <- reply{line: string(line)}:
				default:
					glog.Warningf("reply queue full, dropping %q", line)
				}
				line = nil
			}
		}
		if err != nil {
			u.readErr = err
			close(u.replies)
			return
		}
	}
}

// discardStale drops replies nobody waited for, such as a reply that
// arrived after its command timed out
func (u *Uploader) discardStale() {
	for {
		select {
		case r, ok := <-u.replies:
			if !ok {
				return
			}
			glog.Warningf("discarding late reply %q", r.line)
		default:
			return
		}
	}
}

// waitReply waits up to timeout for the next line and checks it against want
func (u *Uploader) waitReply(ctx context.Context, want string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r, ok := <-u.replies:
		if !ok {
			return fmt.Errorf("read reply: %w", u.readErr)
		}
		if r.line != want {
			return &UnexpectedReplyError{Expected: want, Actual: r.line}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w %q after %v", ErrReplyTimeout, want, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendCommand writes one command line and, for TRANSFER and BOOT3WB, waits for
// the matching reply. Other lines are ignored by the loader and get no reply.
func (u *Uploader) SendCommand(ctx context.Context, line string) error {
	line = terminate(line)
	u.discardStale()
	glog.V(1).Infof("SND %q", line)
	if _, err := io.WriteString(u.port, line); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	want, known := protocol.ReplyFor(line)
	if !known {
		glog.Warningf("%q is not a loader command, no reply expected", line)
		return nil
	}
	if err := u.waitReply(ctx, want, u.config.ReplyTimeout); err != nil {
		return fmt.Errorf("command %q: %w", strings.TrimSuffix(line, "\n"), err)
	}
	return nil
}

// SendImage pads image to protocol.ImageSize, writes it and waits for
// data_ack
func (u *Uploader) SendImage(ctx context.Context, image []byte) error {
	if len(image) > protocol.ImageSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(image), protocol.ImageSize)
	}

	data := make([]byte, protocol.ImageSize)
	copy(data, image)
	for i := len(image); i < len(data); i++ {
		data[i] = u.config.PadByte
	}

	u.discardStale()
	startTime := time.Now()
	sent := 0
	for sent < len(data) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		end := sent + u.config.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := u.port.Write(data[sent:end])
		sent += n
		if err != nil {
			return fmt.Errorf("write image at offset %d: %w", sent, err)
		}

		u.reportProgress(Progress{
			Phase:       PhaseTransfer,
			BytesSent:   sent,
			TotalBytes:  len(data),
			Percentage:  float64(sent) / float64(len(data)) * 100,
			ElapsedTime: time.Since(startTime),
		})
	}

	glog.V(1).Infof("image sent: %d bytes (%d payload) in %v", len(data), len(image), time.Since(startTime))
	if err := u.waitReply(ctx, protocol.ReplyDataAck, u.config.ReplyTimeout); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// WaitComplete waits for bootload_success after the bus was started
func (u *Uploader) WaitComplete(ctx context.Context) error {
	if err := u.waitReply(ctx, protocol.ReplyBootSuccess, u.config.BootTimeout); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	return nil
}

// Upload performs the complete loader sequence:
//  1. Send the first command (TRANSFER by default)
//  2. Send the padded image and wait for data_ack
//  3. Send BOOT3WB, or TRANSFER if boot is disabled
//  4. If either command was BOOT3WB, wait for bootload_success
func (u *Uploader) Upload(ctx context.Context, image []byte) error {
	startTime := time.Now()
	cfg := u.config

	second := protocol.CommandTransfer
	if cfg.Boot {
		second = protocol.CommandBoot
	}
	booting := cfg.FirstCommand == protocol.CommandBoot || second == protocol.CommandBoot

	u.reportProgress(Progress{Phase: PhaseCommand, TotalBytes: protocol.ImageSize})
	if err := u.SendCommand(ctx, cfg.FirstCommand); err != nil {
		return err
	}
	if err := u.SendImage(ctx, image); err != nil {
		return err
	}
	if err := u.SendCommand(ctx, second); err != nil {
		return err
	}

	if booting {
		u.reportProgress(Progress{
			Phase:       PhaseBooting,
			BytesSent:   protocol.ImageSize,
			TotalBytes:  protocol.ImageSize,
			Percentage:  100,
			ElapsedTime: time.Since(startTime),
		})
		if err := u.WaitComplete(ctx); err != nil {
			return err
		}
	}

	u.reportProgress(Progress{
		Phase:       PhaseComplete,
		BytesSent:   protocol.ImageSize,
		TotalBytes:  protocol.ImageSize,
		Percentage:  100,
		ElapsedTime: time.Since(startTime),
	})
	glog.Infof("upload complete in %v (boot=%v)", time.Since(startTime), booting)
	return nil
}

func (u *Uploader) reportProgress(p Progress) {
	if u.config.ProgressCallback != nil {
		u.config.ProgressCallback(p)
	}
}

// terminate appends the line terminator if it is missing
func terminate(line string) string {
	if strings.HasSuffix(line, string(protocol.LineTerminator)) {
		return line
	}
	return line + string(protocol.LineTerminator)
}
