package sink

import (
	"fmt"
	"image"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Video writes frames to a file through OpenCV's VideoWriter.
type Video struct {
	Path string

	writer *gocv.VideoWriter
	size   image.Point
	frames int
}

// NewVideo opens path for writing with the given FourCC codec, e.g. "mp4v".
func NewVideo(path, codec string, fps int, size image.Point) (*Video, error) {
	w, err := gocv.VideoWriterFile(path, codec, float64(fps), size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer for %v: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("video writer for %v did not open (codec %v)", path, codec)
	}
	return &Video{
		Path:   path,
		writer: w,
		size:   size,
	}, nil
}

func (v *Video) Put(frame gocv.Mat) {
	if frame.Cols() != v.size.X || frame.Rows() != v.size.Y {
		log.Warnf("Dropping %dx%d frame for %v, writer expects %v", frame.Cols(), frame.Rows(), v.Path, v.size)
		return
	}
	if err := v.writer.Write(frame); err != nil {
		log.Errorf("Failed to write frame to %v: %v", v.Path, err)
		return
	}
	v.frames++
}

// Frames returns the number of frames written so far.
func (v *Video) Frames() int {
	return v.frames
}

func (v *Video) Close() {
	log.Infof("Wrote %d frames to %v", v.frames, v.Path)
	v.writer.Close()
}
