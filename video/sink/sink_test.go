package sink

import (
	"bufio"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestMJPEGUnknownStream(t *testing.T) {
	s := NewMJPEGServer()
	s.Stream("annotated")

	for _, tt := range []struct {
		url  string
		code int
	}{
		{"/mjpeg", http.StatusBadRequest},
		{"/mjpeg?name=nope", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest("GET", tt.url, nil))
		if rec.Code != tt.code {
			t.Errorf("GET %v = %d, want %d", tt.url, rec.Code, tt.code)
		}
	}
}

func TestMJPEGStreamSkipsEncodingWithoutWatchers(t *testing.T) {
	s := NewMJPEGServer()
	ms := s.Stream("annotated")
	if s.Stream("annotated") != ms {
		t.Fatal("Stream() returned a different stream for the same name")
	}
	m := gocv.Zeros(16, 16, gocv.MatTypeCV8UC3)
	defer m.Close()
	ms.Put(m)
	if ms.Watchers() != 0 {
		t.Errorf("Watchers() = %d, want 0", ms.Watchers())
	}
}

func TestMJPEGStreamDeliversFrames(t *testing.T) {
	s := NewMJPEGServer()
	ms := s.Stream("annotated")
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/?name=annotated", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}

	for ms.Watchers() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	m := gocv.Zeros(16, 16, gocv.MatTypeCV8UC3)
	defer m.Close()
	ms.Put(m)

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, "Content-Type: image/jpeg") {
			return
		}
	}
}

func TestVideoWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	v, err := NewVideo(path, "MJPG", 10, image.Pt(32, 24))
	if err != nil {
		t.Skipf("video writer unavailable: %v", err)
	}

	ok := gocv.Zeros(24, 32, gocv.MatTypeCV8UC3)
	defer ok.Close()
	wrong := gocv.Zeros(10, 10, gocv.MatTypeCV8UC3)
	defer wrong.Close()

	v.Put(ok)
	v.Put(wrong)
	v.Put(ok)
	if v.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", v.Frames())
	}
	v.Close()
}
