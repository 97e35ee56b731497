package process

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// gocv maps RGBA to OpenCV's BGR order internally.
var (
	colorCrosshair = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorOutline   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorMarker    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorGuide     = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

const (
	// CrosshairHalfSpan is half the length of each crosshair arm.
	CrosshairHalfSpan = 10

	lineThickness = 2
)

// TextOrigin is where offset text is drawn. Every circle writes to the same
// spot, so with several circles only the last one stays legible.
var TextOrigin = image.Point{X: 10, Y: 30}

// DrawCrosshair marks center with a horizontal and a vertical segment.
func DrawCrosshair(img *gocv.Mat, center image.Point) {
	gocv.Line(img,
		image.Point{X: center.X - CrosshairHalfSpan, Y: center.Y},
		image.Point{X: center.X + CrosshairHalfSpan, Y: center.Y},
		colorCrosshair, lineThickness)
	gocv.Line(img,
		image.Point{X: center.X, Y: center.Y - CrosshairHalfSpan},
		image.Point{X: center.X, Y: center.Y + CrosshairHalfSpan},
		colorCrosshair, lineThickness)
}

// DrawCircle outlines c and marks its center.
func DrawCircle(img *gocv.Mat, c Circle) {
	gocv.Circle(img, c.Center(), c.R, colorOutline, lineThickness)
	gocv.Circle(img, c.Center(), 1, colorMarker, 3)
}

// DrawOffset draws the guide line from the circle to the frame center and the
// offset readout.
func DrawOffset(img *gocv.Mat, center image.Point, c Circle, o Offset) {
	gocv.Line(img, c.Center(), center, colorGuide, lineThickness)
	gocv.PutText(img, o.String(), TextOrigin, gocv.FontHersheySimplex, 0.5, colorText, lineThickness)
}

// Annotate draws the crosshair and every circle with its offset onto img.
func Annotate(img *gocv.Mat, center image.Point, circles []Circle, offsets []Offset) {
	for i, c := range circles {
		DrawCircle(img, c)
		DrawOffset(img, center, c, offsets[i])
	}
	DrawCrosshair(img, center)
}
