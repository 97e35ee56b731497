package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/pillash/mp4util"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var ErrOpenSource = errors.New("unable to open video source")

// VideoCapture wraps an OpenCV capture device or file.
type VideoCapture struct {
	URI string

	cap       *gocv.VideoCapture
	closeOnce sync.Once
}

func OpenCamera(index int) (*VideoCapture, error) {
	cap, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", ErrOpenSource, index, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: camera %d is not available", ErrOpenSource, index)
	}
	v := &VideoCapture{
		URI: fmt.Sprintf("camera %d", index),
		cap: cap,
	}
	log.Infof("Opened %v (%v)", v.URI, v.Size())
	return v, nil
}

func OpenFile(path string) (*VideoCapture, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenSource, err)
	}
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrOpenSource, path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %v is not a readable video", ErrOpenSource, path)
	}
	v := &VideoCapture{
		URI: path,
		cap: cap,
	}
	if sec, err := FileDuration(path); err == nil {
		log.Infof("Opened %v (%v, %ds)", path, v.Size(), sec)
	} else {
		log.Infof("Opened %v (%v)", path, v.Size())
	}
	return v, nil
}

// FileDuration returns the duration in seconds of an mp4 file. Other
// containers are not inspected.
func FileDuration(path string) (int, error) {
	if !strings.EqualFold(extension(path), ".mp4") {
		return 0, fmt.Errorf("duration unavailable for %v", path)
	}
	return mp4util.Duration(path)
}

func (v *VideoCapture) Read(m *gocv.Mat) bool {
	return v.cap.Read(m)
}

func (v *VideoCapture) Size() image.Point {
	return image.Point{
		X: int(v.cap.Get(gocv.VideoCaptureFrameWidth)),
		Y: int(v.cap.Get(gocv.VideoCaptureFrameHeight)),
	}
}

func (v *VideoCapture) Describe() string {
	return v.URI
}

func (v *VideoCapture) Close() error {
	var err error
	v.closeOnce.Do(func() {
		log.Infof("Releasing %v", v.URI)
		err = v.cap.Close()
	})
	return err
}

// CaptureOpener opens sources through OpenCV.
type CaptureOpener struct{}

func (CaptureOpener) OpenCamera(index int) (Source, error) {
	v, err := OpenCamera(index)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (CaptureOpener) OpenFile(path string) (Source, error) {
	v, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return v, nil
}
