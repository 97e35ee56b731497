package source

import (
	"image"

	"gocv.io/x/gocv"
)

// Source defines a stream of frames, such as a camera or a video file.
type Source interface {
	// Read decodes the next frame into m. It returns false once the stream is
	// exhausted or a frame could not be read; callers must not retry.
	Read(m *gocv.Mat) bool

	// Size returns the frame size of the stream, if known.
	Size() image.Point

	// Describe returns a human readable name of the underlying source.
	Describe() string

	// Close releases the underlying device or file. It is safe to call more
	// than once; only the first call releases anything.
	Close() error
}

// Opener opens sources. It is the seam between source selection and the
// capture backend.
type Opener interface {
	OpenCamera(index int) (Source, error)
	OpenFile(path string) (Source, error)
}
