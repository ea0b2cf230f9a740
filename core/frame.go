// Serial reception for the loader: line-delimited commands and the
// fixed-length raw image
package core

import (
	"errors"

	"threewire/protocol"
)

// ReceiveMode selects how FrameReceiver frames incoming bytes
type ReceiveMode uint8

const (
	ModeLineDelimited ReceiveMode = iota // Read until '\n'
	ModeFixedLength                      // Read exactly Mode.Length bytes
)

// Mode is a ReceiveMode plus the length for fixed-length reception
type Mode struct {
	Kind   ReceiveMode
	Length int
}

// LineDelimited returns the command-line reception mode
func LineDelimited() Mode {
	return Mode{Kind: ModeLineDelimited}
}

// FixedLength returns the raw reception mode for exactly n bytes
func FixedLength(n int) Mode {
	return Mode{Kind: ModeFixedLength, Length: n}
}

// Outcome describes one completed Receive call
type Outcome struct {
	Mode    Mode
	Length  int      // Bytes consumed from the transport
	Command *Command // Matched command in line mode; nil if unrecognized
	Acked   bool     // A reply was sent
}

var (
	ErrLineOverflow  = errors.New("command line exceeds buffer capacity")
	ErrInvalidLength = errors.New("fixed length outside buffer capacity")
	ErrInvalidMode   = errors.New("unknown receive mode")
)

// FrameReceiver reads framed input from the host and answers the two
// recognized commands
type FrameReceiver struct {
	transport     ByteTransport
	commands      *CommandRegistry
	bootRequested bool
}

// NewFrameReceiver creates a receiver with TRANSFER and BOOT3WB registered
func NewFrameReceiver(t ByteTransport) *FrameReceiver {
	r := &FrameReceiver{
		transport: t,
		commands:  NewCommandRegistry(),
	}

	r.commands.Register(protocol.CommandTransfer, protocol.ReplyTransferStarted, nil)
	r.commands.Register(protocol.CommandBoot, protocol.ReplyBootStarted, func() error {
		r.bootRequested = true
		return nil
	})

	return r
}

// BootRequested reports whether a BOOT3WB line has been received
func (r *FrameReceiver) BootRequested() bool {
	return r.bootRequested
}

// Receive blocks until one frame of the given mode has been read into dst
func (r *FrameReceiver) Receive(mode Mode, dst *protocol.Buffer) (Outcome, error) {
	switch mode.Kind {
	case ModeLineDelimited:
		return r.receiveLine(dst)
	case ModeFixedLength:
		return r.receiveFixed(mode.Length, dst)
	default:
		return Outcome{Mode: mode}, ErrInvalidMode
	}
}

// receiveLine reads until a newline, then matches the whole line including
// the newline against the registry. dst is logically cleared on return.
func (r *FrameReceiver) receiveLine(dst *protocol.Buffer) (Outcome, error) {
	out := Outcome{Mode: LineDelimited()}
	dst.Reset()
	defer dst.Reset()

	for {
		b, err := r.transport.ReceiveByte()
		if err != nil {
			return out, err
		}
		if !dst.Append(b) {
			return out, ErrLineOverflow
		}
		out.Length++

		if b != protocol.LineTerminator {
			continue
		}

		cmd, ok := r.commands.Lookup(dst.Bytes())
		if !ok {
			DebugPrintln("[FRAME] ignored line, len=" + itoa(out.Length))
			return out, nil
		}
		out.Command = cmd
		if err := cmd.Execute(r.transport); err != nil {
			return out, err
		}
		out.Acked = cmd.Reply != ""
		return out, nil
	}
}

// receiveFixed reads exactly n bytes into dst and acknowledges the last one.
// dst keeps its length so the filled extent stays visible.
func (r *FrameReceiver) receiveFixed(n int, dst *protocol.Buffer) (Outcome, error) {
	out := Outcome{Mode: FixedLength(n)}
	if n <= 0 || n > dst.Cap() {
		return out, ErrInvalidLength
	}
	dst.Reset()

	for dst.Len() < n {
		b, err := r.transport.ReceiveByte()
		if err != nil {
			return out, err
		}
		dst.Append(b)
		out.Length++
	}

	if err := SendMessage(r.transport, protocol.ReplyDataAck); err != nil {
		return out, err
	}
	out.Acked = true
	return out, nil
}
