package video

import (
	"image"
	"time"

	"holecenter/video/process"
	"holecenter/video/source"
)

// Reading is the measurement taken from a single frame.
type Reading struct {
	RunID   string           `json:"run_id"`
	Seq     int              `json:"seq"`
	Time    time.Time        `json:"time"`
	Size    image.Point      `json:"size"`
	Center  image.Point      `json:"center"`
	Circles []process.Circle `json:"circles"`
	Offsets []process.Offset `json:"offsets"`
}

// ReadingListener receives every Reading from the frame loop. Implementations
// run on the frame loop goroutine and must not block.
type ReadingListener interface {
	ReadingUpdated(r *Reading)
}

type EndReason string

const (
	EndOfStream EndReason = "end of stream"
	EndStopped  EndReason = "stopped"
	EndQuitKey  EndReason = "quit key"
)

// RunSummary describes one pass of the frame loop over a source.
type RunSummary struct {
	RunID     string
	Selection source.Selection
	Source    string
	StartedAt time.Time
	EndedAt   time.Time

	Frames            int
	FramesWithCircles int
	Reason            EndReason

	// Last is the most recent reading that contained at least one circle.
	Last *Reading
}

func (s *RunSummary) add(r *Reading) {
	s.Frames++
	if len(r.Circles) > 0 {
		s.FramesWithCircles++
		s.Last = r
	}
}

// RunListener is told when runs start and end.
type RunListener interface {
	RunStarted(s *RunSummary)
	RunEnded(s *RunSummary)
}
