// Package protocol holds the line and payload framing shared by the loader
// firmware and the host uploader.
package protocol

// Version represents the threewire firmware version
const Version = "0.1.0"

// Buffer sizes
const (
	ImageSize         = 65536 // Exact length of the raw image transfer
	CommandBufferSize = 512   // Capacity of the command line buffer
	UARTRxBufferSize  = 256   // Receive FIFO depth of the serial link
)

// LineTerminator ends every command and reply line
const LineTerminator = '\n'

// Commands sent by the host
const (
	CommandTransfer = "TRANSFER\n"
	CommandBoot     = "BOOT3WB\n"
)

// Replies sent by the device
const (
	ReplyTransferStarted = "transfer_started\n"
	ReplyBootStarted     = "bootload_started\n"
	ReplyDataAck         = "data_ack\n"
	ReplyBootSuccess     = "bootload_success\n"
)

// ReplyFor returns the reply the device sends for a recognized command line
func ReplyFor(command string) (string, bool) {
	switch command {
	case CommandTransfer:
		return ReplyTransferStarted, true
	case CommandBoot:
		return ReplyBootStarted, true
	}
	return "", false
}
