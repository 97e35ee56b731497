package video

import (
	"context"
	"image"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"holecenter/video/process"
	"holecenter/video/sink"
	"holecenter/video/source"
)

// QuitKey ends a run when pressed in the display.
const QuitKey = 'q'

// Processor runs the per-frame pipeline: grayscale, blur, circle detection,
// annotation and display.
type Processor struct {
	Detector process.Detector

	// Display shows annotated frames and is polled for the quit key. It is
	// closed when a run ends. Optional.
	Display sink.Display

	// Sinks receive every annotated frame and live across runs.
	Sinks []sink.Sink
	// RawSinks receive every frame before annotation.
	RawSinks []sink.Sink

	Listeners []ReadingListener

	// PollTimeout is how long the display is polled for the quit key after
	// each frame.
	PollTimeout time.Duration

	frame, gray, blurred gocv.Mat
}

func NewProcessor(d process.Detector) *Processor {
	return &Processor{
		Detector:    d,
		PollTimeout: time.Millisecond,
		frame:       gocv.NewMat(),
		gray:        gocv.NewMat(),
		blurred:     gocv.NewMat(),
	}
}

func (p *Processor) Close() {
	p.frame.Close()
	p.gray.Close()
	p.blurred.Close()
}

// ProcessFrame detects circles in frame and annotates it in place.
func (p *Processor) ProcessFrame(frame *gocv.Mat) *Reading {
	process.Preprocess(*frame, &p.gray, &p.blurred)

	circles, err := p.Detector.Detect(p.blurred)
	if err != nil {
		log.Warnf("Circle detection failed, annotating crosshair only: %v", err)
		circles = nil
	}

	center := process.FrameCenter(frame.Cols(), frame.Rows())
	offsets := process.Offsets(center, circles)
	process.Annotate(frame, center, circles, offsets)

	return &Reading{
		Time:    time.Now(),
		Size:    image.Point{X: frame.Cols(), Y: frame.Rows()},
		Center:  center,
		Circles: circles,
		Offsets: offsets,
	}
}

// Run reads frames from src until the stream ends, ctx is cancelled or the
// quit key is pressed. src is released and the display closed exactly once
// on every path. runSinks are closed when the run ends.
func (p *Processor) Run(ctx context.Context, summary *RunSummary, src source.Source, runSinks ...sink.Sink) *RunSummary {
	running.Set(1)
	defer func() {
		if err := src.Close(); err != nil {
			log.Errorf("Failed to release %v: %v", src.Describe(), err)
		}
		if p.Display != nil {
			p.Display.Close()
		}
		for _, s := range runSinks {
			s.Close()
		}
		summary.EndedAt = time.Now()
		running.Set(0)
		runsEnded.WithLabelValues(string(summary.Reason)).Inc()
		log.Infof("Run %v over %v ended (%v) after %d frames, %d with circles",
			summary.RunID, summary.Source, summary.Reason, summary.Frames, summary.FramesWithCircles)
	}()

	for seq := 0; ; seq++ {
		if ctx.Err() != nil {
			summary.Reason = EndStopped
			return summary
		}
		if ok := src.Read(&p.frame); !ok || p.frame.Empty() {
			summary.Reason = EndOfStream
			return summary
		}

		for _, s := range p.RawSinks {
			s.Put(p.frame)
		}

		start := time.Now()
		r := p.ProcessFrame(&p.frame)
		frameSeconds.Observe(time.Since(start).Seconds())
		r.RunID = summary.RunID
		r.Seq = seq

		log.Debugf("Frame %d: %d circle(s) %v", seq, len(r.Circles), r.Offsets)
		observeReading(r)
		summary.add(r)
		for _, l := range p.Listeners {
			l.ReadingUpdated(r)
		}
		for _, s := range p.Sinks {
			s.Put(p.frame)
		}
		for _, s := range runSinks {
			s.Put(p.frame)
		}

		if p.Display != nil {
			p.Display.Put(p.frame)
			if key := p.Display.PollKey(p.PollTimeout); key == QuitKey {
				log.Infof("Quit key pressed")
				summary.Reason = EndQuitKey
				return summary
			}
		}
	}
}
