package process

import (
	"fmt"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Detector finds circles in a single channel image.
type Detector interface {
	Detect(gray gocv.Mat) ([]Circle, error)
}

// HoughParams are the arguments of OpenCV's gradient Hough circle transform.
type HoughParams struct {
	DP        float64
	MinDist   float64
	Param1    float64
	Param2    float64
	MinRadius int
	MaxRadius int
}

func DefaultHoughParams() HoughParams {
	return HoughParams{
		DP:        1,
		MinDist:   20,
		Param1:    50,
		Param2:    30,
		MinRadius: 1,
		MaxRadius: 40,
	}
}

// HoughDetector runs gocv.HoughCirclesWithParams. Parameters may be swapped
// between frames with SetParams.
type HoughDetector struct {
	params  HoughParams
	circles gocv.Mat
	l       sync.Mutex
}

func NewHoughDetector(p HoughParams) *HoughDetector {
	return &HoughDetector{
		params:  p,
		circles: gocv.NewMat(),
	}
}

func (d *HoughDetector) Params() HoughParams {
	d.l.Lock()
	defer d.l.Unlock()
	return d.params
}

func (d *HoughDetector) SetParams(p HoughParams) {
	d.l.Lock()
	defer d.l.Unlock()
	if d.params != p {
		log.Infof("Hough parameters updated: %+v", p)
	}
	d.params = p
}

func (d *HoughDetector) Detect(gray gocv.Mat) ([]Circle, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("detect: empty image")
	}
	if gray.Channels() != 1 {
		return nil, fmt.Errorf("detect: expected 1 channel, got %d", gray.Channels())
	}

	d.l.Lock()
	defer d.l.Unlock()
	p := d.params

	gocv.HoughCirclesWithParams(gray, &d.circles, gocv.HoughGradient,
		p.DP, p.MinDist, p.Param1, p.Param2, p.MinRadius, p.MaxRadius)

	// Results are a 1xN matrix of (x, y, r) float triples.
	if d.circles.Empty() {
		return nil, nil
	}
	out := make([]Circle, 0, d.circles.Cols())
	for i := 0; i < d.circles.Cols(); i++ {
		v := d.circles.GetVecfAt(0, i)
		out = append(out, RoundCircle(v[0], v[1], v[2]))
	}
	return out, nil
}

func (d *HoughDetector) Close() error {
	d.l.Lock()
	defer d.l.Unlock()
	return d.circles.Close()
}

// Preprocess converts a BGR frame to a blurred single channel image ready for
// detection.
func Preprocess(frame gocv.Mat, gray, blurred *gocv.Mat) {
	gocv.CvtColor(frame, gray, gocv.ColorBGRToGray)
	gocv.Blur(*gray, blurred, image.Point{X: 3, Y: 3})
}
