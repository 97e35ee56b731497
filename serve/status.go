package serve

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"holecenter/notify"
	"holecenter/video"
)

// RunInfo is the JSON view of a run.
type RunInfo struct {
	ID                string    `json:"id"`
	Source            string    `json:"source"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at,omitempty"`
	Frames            int       `json:"frames"`
	FramesWithCircles int       `json:"frames_with_circles"`
	Reason            string    `json:"reason,omitempty"`
}

func toRunInfo(s *video.RunSummary) *RunInfo {
	return &RunInfo{
		ID:                s.RunID,
		Source:            s.Source,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		Frames:            s.Frames,
		FramesWithCircles: s.FramesWithCircles,
		Reason:            string(s.Reason),
	}
}

type StatusResponse struct {
	Running bool           `json:"running"`
	Aligned bool           `json:"aligned"`
	Run     *RunInfo       `json:"run,omitempty"`
	Latest  *video.Reading `json:"latest,omitempty"`
}

// StatusServer remembers the latest reading and run and serves them as JSON.
type StatusServer struct {
	// Notifier reports whether the current run is aligned. Optional.
	Notifier *notify.Notifier

	running bool
	run     *RunInfo
	latest  *video.Reading
	l       sync.Mutex
}

func (s *StatusServer) ReadingUpdated(r *video.Reading) {
	s.l.Lock()
	defer s.l.Unlock()
	s.latest = r
}

func (s *StatusServer) RunStarted(rs *video.RunSummary) {
	s.l.Lock()
	defer s.l.Unlock()
	s.running = true
	s.run = toRunInfo(rs)
	s.latest = nil
}

func (s *StatusServer) RunEnded(rs *video.RunSummary) {
	s.l.Lock()
	defer s.l.Unlock()
	s.running = false
	s.run = toRunInfo(rs)
}

func (s *StatusServer) BuildResponse() *StatusResponse {
	aligned := s.Notifier != nil && s.Notifier.Aligned()

	s.l.Lock()
	defer s.l.Unlock()
	return &StatusResponse{
		Running: s.running,
		Aligned: aligned,
		Run:     s.run,
		Latest:  s.latest,
	}
}

func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	js, err := json.Marshal(s.BuildResponse())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
