package source

import (
	"image"
	"image/color"
	"math/rand"

	"gocv.io/x/gocv"
)

// SyntheticOptions describes a generated clip of a bright disc bouncing around
// a dark frame.
type SyntheticOptions struct {
	Width, Height int
	FPS           int
	Frames        int
	Radius        int
	Speed         int

	// Start is the disc position in the first frame. The zero value picks a
	// random position that keeps the disc inside the frame.
	Start image.Point
}

// DefaultSyntheticOptions describes a 10 second 720p clip at 30 fps.
func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Width:  1280,
		Height: 720,
		FPS:    30,
		Frames: 30 * 10,
		Radius: 30,
		Speed:  15,
	}
}

// WithRandomStart fills in Start if it is unset.
func (o SyntheticOptions) WithRandomStart(rng *rand.Rand) SyntheticOptions {
	if o.Start == (image.Point{}) {
		o.Start = image.Point{
			X: o.Radius + rng.Intn(o.Width-2*o.Radius),
			Y: o.Radius + rng.Intn(o.Height-2*o.Radius),
		}
	}
	return o
}

// Trajectory returns the disc center for every frame of the clip. The disc
// moves diagonally and reverses an axis once it touches an edge.
func (o SyntheticOptions) Trajectory() []image.Point {
	pts := make([]image.Point, 0, o.Frames)
	p := o.Start
	d := image.Point{X: o.Speed, Y: o.Speed}
	for i := 0; i < o.Frames; i++ {
		pts = append(pts, p)
		p = p.Add(d)
		if p.X <= o.Radius || p.X >= o.Width-o.Radius {
			d.X = -d.X
		}
		if p.Y <= o.Radius || p.Y >= o.Height-o.Radius {
			d.Y = -d.Y
		}
	}
	return pts
}

var colorDisc = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Synthetic is an in-memory Source rendering SyntheticOptions frame by frame.
type Synthetic struct {
	opts   SyntheticOptions
	path   []image.Point
	next   int
	canvas gocv.Mat
	closed bool
}

func NewSynthetic(opts SyntheticOptions) *Synthetic {
	return &Synthetic{
		opts:   opts,
		path:   opts.Trajectory(),
		canvas: gocv.Zeros(opts.Height, opts.Width, gocv.MatTypeCV8UC3),
	}
}

func (s *Synthetic) Read(m *gocv.Mat) bool {
	if s.closed || s.next >= len(s.path) {
		return false
	}
	s.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.Circle(&s.canvas, s.path[s.next], s.opts.Radius, colorDisc, -1)
	s.canvas.CopyTo(m)
	s.next++
	return true
}

// Position returns the disc center of the most recently read frame.
func (s *Synthetic) Position() image.Point {
	if s.next == 0 {
		return s.opts.Start
	}
	return s.path[s.next-1]
}

func (s *Synthetic) Size() image.Point {
	return image.Point{X: s.opts.Width, Y: s.opts.Height}
}

func (s *Synthetic) Describe() string {
	return "synthetic"
}

func (s *Synthetic) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.canvas.Close()
}

// SyntheticOpener opens a generated clip in place of any camera or file.
type SyntheticOpener struct {
	Options SyntheticOptions
}

func (o SyntheticOpener) OpenCamera(int) (Source, error) {
	return NewSynthetic(o.Options), nil
}

func (o SyntheticOpener) OpenFile(string) (Source, error) {
	return NewSynthetic(o.Options), nil
}
