package video

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holecenter_frames_processed_total",
		Help: "Frames read and annotated.",
	})
	framesWithoutCircles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holecenter_frames_without_circles_total",
		Help: "Frames in which the detector found no circle.",
	})
	circlesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holecenter_circles_detected_total",
		Help: "Circles returned by the detector across all frames.",
	})
	frameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "holecenter_frame_process_seconds",
		Help:    "Time spent converting, detecting and annotating one frame.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})
	lastOffset = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "holecenter_last_offset_pixels",
		Help: "Offset of the first detected circle from the frame center.",
	}, []string{"axis"})
	runsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holecenter_runs_total",
		Help: "Completed runs by end reason.",
	}, []string{"reason"})
	running = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holecenter_running",
		Help: "1 while a frame loop is running.",
	})
)

func observeReading(r *Reading) {
	framesProcessed.Inc()
	circlesDetected.Add(float64(len(r.Circles)))
	if len(r.Offsets) == 0 {
		framesWithoutCircles.Inc()
		return
	}
	lastOffset.WithLabelValues("x").Set(float64(r.Offsets[0].DX))
	lastOffset.WithLabelValues("y").Set(float64(r.Offsets[0].DY))
}
