// Package media abstracts video input and output behind small interfaces
// so the job state machine and recording sessions can be exercised without
// real codecs. The default implementations wrap GoCV video capture and
// writing.
package media

import (
	"gocv.io/x/gocv"
)

// Source reads frames from a video input
type Source interface {
	// Read returns the next frame, reporting false at end of stream.
	// The returned Mat is owned by the caller
	Read() (gocv.Mat, bool)
	// FPS is the nominal frame rate of the input
	FPS() float64
	// FrameSize returns the input frame dimensions
	FrameSize() (width, height int)
	// TotalFrames is the frame count of the input, 0 when unknown
	TotalFrames() int
	// Close releases the input
	Close() error
}

// Opener opens a video input by path or device reference
type Opener func(path string) (Source, error)

// Sink accepts fixed-size raster frames at a fixed frame rate
type Sink interface {
	// Write appends one frame to the output
	Write(frame gocv.Mat) error
	// Close finalizes the output
	Close() error
}

// SinkFactory allocates a sink writing to the given path
type SinkFactory func(path string, fps float64, width, height int) (Sink, error)
