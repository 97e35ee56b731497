package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"holecenter/video"
	"holecenter/video/process"
)

// Notification is sent to all NotifyListeners when a hole lines up with the
// crosshair.
type Notification struct {
	RunID      string         `json:"run_id"`
	TimeString string         `json:"time"`
	Seq        int            `json:"seq"`
	Offset     process.Offset `json:"offset"`
	Tolerance  int            `json:"tolerance"`
}

type NotifyListener interface {
	Notify(n *Notification) error
}

// Notifier watches readings and fires once each time a run goes from
// misaligned to aligned. A frame is aligned when any detected circle is within
// Tolerance pixels of the frame center on both axes.
type Notifier struct {
	Listeners []NotifyListener

	tolerance int
	runID     string
	aligned   bool

	l sync.Mutex
}

func NewNotifier(tolerance int) *Notifier {
	return &Notifier{tolerance: tolerance}
}

func (n *Notifier) SetTolerance(tol int) {
	n.l.Lock()
	defer n.l.Unlock()
	n.tolerance = tol
}

func (n *Notifier) Aligned() bool {
	n.l.Lock()
	defer n.l.Unlock()
	return n.aligned
}

func (n *Notifier) ReadingUpdated(r *video.Reading) {
	n.l.Lock()
	defer n.l.Unlock()

	if r.RunID != n.runID {
		n.runID = r.RunID
		n.aligned = false
	}

	var best *process.Offset
	for i, o := range r.Offsets {
		if o.Within(n.tolerance) {
			best = &r.Offsets[i]
			break
		}
	}
	if best == nil {
		n.aligned = false
		return
	}
	if n.aligned {
		return
	}
	n.aligned = true

	notification := &Notification{
		RunID:      r.RunID,
		TimeString: r.Time.Format(time.Kitchen),
		Seq:        r.Seq,
		Offset:     *best,
		Tolerance:  n.tolerance,
	}
	log.Infof("Hole aligned: %v", spew.Sdump(notification))
	for _, l := range n.Listeners {
		go func(l NotifyListener) {
			if err := l.Notify(notification); err != nil {
				log.Errorf("Failed to send alignment notification: %v", err)
			}
		}(l)
	}
}
