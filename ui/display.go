package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// canvasDisplay shows frames in a fyne canvas.Image and relays key presses
// typed into the window to the frame loop.
type canvasDisplay struct {
	image *canvas.Image
	keys  chan int
}

func newCanvasDisplay() *canvasDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(640, 360))
	return &canvasDisplay{
		image: img,
		keys:  make(chan int, 1),
	}
}

func (d *canvasDisplay) Put(frame gocv.Mat) {
	img, err := frame.ToImage()
	if err != nil {
		log.Errorf("Failed to convert frame for display: %v", err)
		return
	}
	fyne.Do(func() {
		d.image.Image = img
		d.image.Refresh()
	})
}

func (d *canvasDisplay) PollKey(timeout time.Duration) int {
	select {
	case k := <-d.keys:
		return k
	case <-time.After(timeout):
		return -1
	}
}

// pressKey queues a key for the next poll. Presses arriving while one is
// already queued are dropped.
func (d *canvasDisplay) pressKey(k int) {
	select {
	case d.keys <- k:
	default:
	}
}

// drainKeys discards a queued key so it cannot end a later run.
func (d *canvasDisplay) drainKeys() {
	select {
	case <-d.keys:
	default:
	}
}

// Close blanks the panel; the window itself belongs to the app.
func (d *canvasDisplay) Close() {
	d.drainKeys()
	fyne.Do(func() {
		d.image.Image = nil
		d.image.Refresh()
	})
}
