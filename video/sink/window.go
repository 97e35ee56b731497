package sink

import (
	"time"

	"gocv.io/x/gocv"
)

// WindowTitle is the title used for the OpenCV display window.
const WindowTitle = "Hole Centering Tool"

// Window displays frames in a native OpenCV window.
type Window struct {
	window  *gocv.Window
	sizeSet bool
	closed  bool
}

func NewWindow(name string) *Window {
	return &Window{
		window: gocv.NewWindow(name),
	}
}

func (w *Window) Put(frame gocv.Mat) {
	if w.closed {
		return
	}
	if !w.sizeSet {
		w.window.ResizeWindow(frame.Cols(), frame.Rows())
		w.sizeSet = true
	}
	w.window.IMShow(frame)
}

func (w *Window) PollKey(timeout time.Duration) int {
	if w.closed {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	key := w.window.WaitKey(ms)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.window.Close()
}
