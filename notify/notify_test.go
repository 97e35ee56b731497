package notify

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"holecenter/journal"
	"holecenter/video"
	"holecenter/video/process"
)

type recorder struct {
	mu   sync.Mutex
	got  []*Notification
	seen chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 16)}
}

func (r *recorder) Notify(n *Notification) error {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T, want int) []*Notification {
	t.Helper()
	for i := 0; i < want; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d notifications, want %d", i, want)
		}
	}
	// Nothing further should arrive.
	select {
	case <-r.seen:
		t.Fatalf("more than %d notifications", want)
	case <-time.After(50 * time.Millisecond):
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Notification{}, r.got...)
}

func reading(run string, seq int, offsets ...process.Offset) *video.Reading {
	return &video.Reading{RunID: run, Seq: seq, Time: time.Now(), Offsets: offsets}
}

func TestNotifierFiresOnTransition(t *testing.T) {
	n := NewNotifier(2)
	rec := newRecorder()
	n.Listeners = append(n.Listeners, rec)

	n.ReadingUpdated(reading("a", 0, process.Offset{DX: 30, DY: 4}))
	n.ReadingUpdated(reading("a", 1, process.Offset{DX: 30, DY: 4}, process.Offset{DX: 1, DY: -2}))
	n.ReadingUpdated(reading("a", 2, process.Offset{DX: 0, DY: 0}))
	n.ReadingUpdated(reading("a", 3))
	n.ReadingUpdated(reading("a", 4, process.Offset{DX: -2, DY: 2}))

	got := rec.wait(t, 2)
	seqs := map[int]bool{}
	for _, g := range got {
		seqs[g.Seq] = true
	}
	if !seqs[1] || !seqs[4] {
		t.Errorf("notified seqs = %v, want 1 and 4", seqs)
	}
	for _, g := range got {
		if g.Seq == 1 && g.Offset != (process.Offset{DX: 1, DY: -2}) {
			t.Errorf("aligned offset = %v", g.Offset)
		}
	}
}

func TestNotifierResetsPerRun(t *testing.T) {
	n := NewNotifier(0)
	rec := newRecorder()
	n.Listeners = append(n.Listeners, rec)

	n.ReadingUpdated(reading("a", 0, process.Offset{}))
	if !n.Aligned() {
		t.Error("Aligned() = false after centered reading")
	}
	n.ReadingUpdated(reading("b", 0, process.Offset{}))
	rec.wait(t, 2)
}

func TestNotifierSetTolerance(t *testing.T) {
	n := NewNotifier(0)
	n.ReadingUpdated(reading("a", 0, process.Offset{DX: 3}))
	if n.Aligned() {
		t.Fatal("aligned at tolerance 0")
	}
	n.SetTolerance(5)
	n.ReadingUpdated(reading("a", 1, process.Offset{DX: 3}))
	if !n.Aligned() {
		t.Error("not aligned at tolerance 5")
	}
}

func TestDecodeSubscription(t *testing.T) {
	tests := []struct {
		method, body string
		code         int
		ok           bool
	}{
		{"GET", "", http.StatusMethodNotAllowed, false},
		{"POST", "not json", http.StatusBadRequest, false},
		{"POST", `{"keys":{}}`, http.StatusBadRequest, false},
		{"POST", `{"endpoint":"https://push.example/abc","keys":{"auth":"a","p256dh":"b"}}`, http.StatusOK, true},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, "/push_subscribe", bytes.NewBufferString(tt.body))
		sub := decodeSubscription(rec, req)
		if (sub != nil) != tt.ok || rec.Code != tt.code {
			t.Errorf("%v %q: sub=%v code=%d, want ok=%v code=%d", tt.method, tt.body, sub, rec.Code, tt.ok, tt.code)
		}
	}
}

func TestWebPushMySQL(t *testing.T) {
	dsn := os.Getenv("HOLECENTER_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("HOLECENTER_TEST_MYSQL_DSN not set, skipping MySQL test")
	}
	db, err := journal.Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewWebPush(db, "ops@example.com")
	if err != nil {
		t.Fatalf("NewWebPush() = %v", err)
	}
	if p.Key.Public == "" || p.Key.Private == "" {
		t.Fatal("VAPID key not populated")
	}
	again, err := NewWebPush(db, "ops@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.Key.Public != p.Key.Public {
		t.Error("VAPID key regenerated instead of loaded")
	}

	mux := http.NewServeMux()
	p.RegisterHandlers(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/push_get_pubkey", nil))
	if rec.Body.String() != p.Key.Public {
		t.Errorf("pubkey = %q", rec.Body.String())
	}

	body := `{"endpoint":"https://push.invalid/holecenter-test","keys":{"auth":"a","p256dh":"b"}}`
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/push_subscribe", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe = %d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/push_unsubscribe", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("unsubscribe = %d %s", rec.Code, rec.Body.String())
	}
}
