// Command samplegen writes a test clip of a bright hole bouncing around a
// dark 720p frame.
package main

import (
	"flag"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"holecenter/video/sink"
	"holecenter/video/source"
)

var (
	out    = flag.String("out", "random_moving_hole.mp4", "Output video path.")
	seed   = flag.Int64("seed", 0, "Random seed for the start position. Zero uses the clock.")
	codec  = flag.String("codec", "mp4v", "FourCC codec.")
	radius = flag.Int("radius", 30, "Hole radius in pixels.")
	speed  = flag.Int("speed", 15, "Pixels moved per frame on each axis.")
)

func main() {
	flag.Parse()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	opts := source.DefaultSyntheticOptions()
	opts.Radius = *radius
	opts.Speed = *speed
	opts = opts.WithRandomStart(rand.New(rand.NewSource(s)))

	src := source.NewSynthetic(opts)
	defer src.Close()

	v, err := sink.NewVideo(*out, *codec, opts.FPS, src.Size())
	if err != nil {
		log.Fatalf("Failed to create %v: %v", *out, err)
	}
	defer v.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	for src.Read(&frame) {
		v.Put(frame)
	}
	log.Infof("Generated %v starting at %v", *out, opts.Start)
}
