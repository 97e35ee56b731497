package process

import (
	"fmt"
	"image"
	"math"
)

// Circle is a detected circle in pixel coordinates.
type Circle struct {
	X, Y, R int
}

func (c Circle) Center() image.Point {
	return image.Point{X: c.X, Y: c.Y}
}

// RoundCircle converts a raw detector result to integer pixel coordinates.
func RoundCircle(x, y, r float32) Circle {
	return Circle{
		X: int(math.Round(float64(x))),
		Y: int(math.Round(float64(y))),
		R: int(math.Round(float64(r))),
	}
}

// Offset is the signed pixel distance from the frame center to a circle center.
type Offset struct {
	DX, DY int
}

// String is the text drawn on the frame.
func (o Offset) String() string {
	return fmt.Sprintf("Distance X: %.2f, Distance Y: %.2f", float64(o.DX), float64(o.DY))
}

// Within reports whether both axes are within tol pixels of zero.
func (o Offset) Within(tol int) bool {
	return abs(o.DX) <= tol && abs(o.DY) <= tol
}

// FrameCenter returns the reference point of a width x height frame.
func FrameCenter(width, height int) image.Point {
	return image.Point{X: width / 2, Y: height / 2}
}

func OffsetFrom(center image.Point, c Circle) Offset {
	return Offset{DX: c.X - center.X, DY: c.Y - center.Y}
}

// Offsets computes one offset per circle, in detector order.
func Offsets(center image.Point, circles []Circle) []Offset {
	if len(circles) == 0 {
		return nil
	}
	out := make([]Offset, len(circles))
	for i, c := range circles {
		out[i] = OffsetFrom(center, c)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
