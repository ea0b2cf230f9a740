package uploader

import (
	"errors"
	"fmt"
)

var (
	// ErrReplyTimeout is returned when the device does not answer in time
	ErrReplyTimeout = errors.New("timed out waiting for reply")

	// ErrImageTooLarge is returned for images over protocol.ImageSize
	ErrImageTooLarge = errors.New("image exceeds transfer size")
)

// UnexpectedReplyError indicates that the device answered with a different line.
type UnexpectedReplyError struct {
	Expected string
	Actual   string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("unexpected reply: expected %q, got %q", e.Expected, e.Actual)
}
