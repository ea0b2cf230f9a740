package uploader

import "time"

// Upload phases reported through Progress.Phase
const (
	PhaseCommand  = "command"
	PhaseTransfer = "transfer"
	PhaseBooting  = "booting"
	PhaseComplete = "complete"
)

// Progress contains information about the upload progress.
type Progress struct {
	// Phase is one of the Phase constants
	Phase string

	// BytesSent is the number of image bytes written so far
	BytesSent int

	// TotalBytes is the padded image size
	TotalBytes int

	// Percentage is the completion percentage of the transfer (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the upload started
	ElapsedTime time.Duration
}

// ProgressCallback is called as the upload advances.
// Implementations should return quickly to avoid stalling the transfer.
type ProgressCallback func(Progress)
