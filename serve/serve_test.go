package serve

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"holecenter/journal"
	"holecenter/notify"
	"holecenter/video"
	"holecenter/video/process"
	"holecenter/video/sink"
)

func TestStatusServer(t *testing.T) {
	s := &StatusServer{}
	run := &video.RunSummary{RunID: "r1", Source: "camera 0", StartedAt: time.Now()}
	s.RunStarted(run)
	s.ReadingUpdated(&video.Reading{RunID: "r1", Seq: 3, Offsets: []process.Offset{{DX: 5, DY: -1}}})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Running || resp.Run == nil || resp.Run.ID != "r1" {
		t.Errorf("run = %+v", resp)
	}
	if resp.Latest == nil || resp.Latest.Seq != 3 || resp.Latest.Offsets[0].DX != 5 {
		t.Errorf("latest = %+v", resp.Latest)
	}

	run.Reason = video.EndOfStream
	s.RunEnded(run)
	if r := s.BuildResponse(); r.Running || r.Run.Reason != "end of stream" {
		t.Errorf("after end = %+v", r)
	}
}

func TestHandlerRoutes(t *testing.T) {
	h := NewHandler(Routes{
		MJPEG:  sink.NewMJPEGServer(),
		Status: &StatusServer{},
		Extra: func(mux *http.ServeMux) {
			mux.HandleFunc("/extra", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("extra"))
			})
		},
	})

	for _, tt := range []struct {
		path string
		code int
	}{
		{"/metrics", http.StatusOK},
		{"/status", http.StatusOK},
		{"/extra", http.StatusOK},
		{"/mjpeg", http.StatusBadRequest},
		{"/offsetsws", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != tt.code {
			t.Errorf("GET %v = %d, want %d", tt.path, rec.Code, tt.code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

func TestOffsetFeed(t *testing.T) {
	u := NewOffsetUpdater()
	defer u.Close()
	srv := httptest.NewServer(u)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}
	defer ws.Close()

	// Registration happens asynchronously; publish until the client sees it.
	deadline := time.Now().Add(5 * time.Second)
	got := make(chan Message, 1)
	go func() {
		for {
			var m Message
			if err := ws.ReadJSON(&m); err != nil {
				return
			}
			if m.Type == "aligned" {
				got <- m
				return
			}
		}
	}()
	for {
		u.ReadingUpdated(&video.Reading{RunID: "r1", Seq: 1})
		u.Notify(&notify.Notification{RunID: "r1", Seq: 1})
		select {
		case m := <-got:
			if m.Notification == nil || m.Notification.RunID != "r1" {
				t.Errorf("aligned message = %+v", m)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("no aligned message received")
		}
	}
}

type fakeRuns struct {
	runs  []*journal.Run
	limit int
	err   error
}

func (f *fakeRuns) Recent(limit int) ([]*journal.Run, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func TestRunsServer(t *testing.T) {
	runs := &fakeRuns{runs: []*journal.Run{{RunID: "b", Frames: 9}, {RunID: "a", Frames: 3}}}
	h := NewHandler(Routes{Runs: &RunsServer{Journal: runs}})

	for _, tt := range []struct {
		query     string
		code      int
		wantLimit int
		wantRuns  int
	}{
		{"", http.StatusOK, defaultRunsLimit, 2},
		{"?limit=1", http.StatusOK, 1, 1},
		{"?limit=100000", http.StatusOK, maxRunsLimit, 2},
		{"?limit=0", http.StatusBadRequest, 0, 0},
		{"?limit=x", http.StatusBadRequest, 0, 0},
	} {
		runs.limit = 0
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/runs"+tt.query, nil))
		if rec.Code != tt.code {
			t.Errorf("GET /runs%v = %d, want %d", tt.query, rec.Code, tt.code)
			continue
		}
		if runs.limit != tt.wantLimit {
			t.Errorf("GET /runs%v asked for %d runs, want %d", tt.query, runs.limit, tt.wantLimit)
		}
		if tt.code != http.StatusOK {
			continue
		}
		var got []*journal.Run
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.wantRuns || got[0].RunID != "b" {
			t.Errorf("GET /runs%v = %d runs, want %d newest first", tt.query, len(got), tt.wantRuns)
		}
	}

	runs.err = errors.New("database gone")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/runs", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /runs with failing journal = %d", rec.Code)
	}
}

func TestStatusReportsAlignment(t *testing.T) {
	n := notify.NewNotifier(2)
	s := &StatusServer{Notifier: n}

	n.ReadingUpdated(&video.Reading{RunID: "r1", Offsets: []process.Offset{{DX: 30, DY: 0}}})
	if s.BuildResponse().Aligned {
		t.Error("aligned with the hole 30px off center")
	}
	n.ReadingUpdated(&video.Reading{RunID: "r1", Offsets: []process.Offset{{DX: 1, DY: -2}}})
	if !s.BuildResponse().Aligned {
		t.Error("not aligned with the hole within tolerance")
	}
}
