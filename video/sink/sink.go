package sink

import (
	"time"

	"gocv.io/x/gocv"
)

// Sink defines a destination for a stream of frames, such as a video file or
// an HTTP stream.
type Sink interface {
	// Put hands a frame to the sink. The sink must not keep references to the
	// Mat after Put returns.
	Put(frame gocv.Mat)

	// Close should be called to finalize the Sink.
	Close()
}

// Display is an interactive sink an operator looks at.
type Display interface {
	Sink

	// PollKey waits up to timeout for a key press and returns its code, or -1
	// when no key was pressed. The wait also paces the frame loop.
	PollKey(timeout time.Duration) int
}
