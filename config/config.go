package config

import (
	"errors"
	"fmt"
)

// Detection holds the Hough gradient parameters handed to the circle detector.
type Detection struct {
	// Inverse ratio of accumulator resolution to image resolution.
	DP float64
	// Minimum distance in pixels between detected centers.
	MinDist float64
	// Upper Canny edge threshold.
	Param1 float64
	// Accumulator threshold for center votes.
	Param2 float64

	MinRadius int
	MaxRadius int
}

type Config struct {
	// CameraIndex selects the capture device used in webcam mode.
	CameraIndex int

	Detection Detection

	// CenterTolerance is the pixel distance on each axis within which a hole is
	// considered aligned with the crosshair.
	CenterTolerance int

	// HTTPPort hosts the status, metrics and MJPEG endpoints. Zero disables.
	HTTPPort int

	// If set, annotated output is also written to this video file.
	RecordPath string

	// MySQL DSN for the run journal and web push subscriptions. Optional.
	DatabaseDSN string

	// Contact address sent to push services along with VAPID-signed requests.
	PushSubscriber string
}

// DefaultDetection matches the tuning the tool has always shipped with.
func DefaultDetection() Detection {
	return Detection{
		DP:        1,
		MinDist:   20,
		Param1:    50,
		Param2:    30,
		MinRadius: 1,
		MaxRadius: 40,
	}
}

func Default() *Config {
	return &Config{
		CameraIndex:     0,
		Detection:       DefaultDetection(),
		CenterTolerance: 2,
		HTTPPort:        0,
	}
}

var ErrInvalidDetection = errors.New("invalid detection parameters")

func (d Detection) Validate() error {
	switch {
	case d.DP <= 0:
		return fmt.Errorf("%w: DP must be positive, got %v", ErrInvalidDetection, d.DP)
	case d.MinDist <= 0:
		return fmt.Errorf("%w: MinDist must be positive, got %v", ErrInvalidDetection, d.MinDist)
	case d.Param1 <= 0 || d.Param2 <= 0:
		return fmt.Errorf("%w: thresholds must be positive, got %v/%v", ErrInvalidDetection, d.Param1, d.Param2)
	case d.MinRadius < 0 || d.MaxRadius < d.MinRadius:
		return fmt.Errorf("%w: radius range [%d, %d]", ErrInvalidDetection, d.MinRadius, d.MaxRadius)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.CameraIndex < 0 {
		return fmt.Errorf("camera index must not be negative, got %d", c.CameraIndex)
	}
	if c.CenterTolerance < 0 {
		return fmt.Errorf("center tolerance must not be negative, got %d", c.CenterTolerance)
	}
	return c.Detection.Validate()
}
