package sink

import (
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const mjpegBoundary = "HOLECENTERFRAME"
const mjpegPartHeader = "\r\n" +
	"--" + mjpegBoundary + "\r\n" +
	"Content-Type: image/jpeg\r\n" +
	"Content-Length: %d\r\n" +
	"\r\n"

// MJPEGServer serves named multipart JPEG streams over HTTP, e.g.
// /mjpeg?name=annotated.
type MJPEGServer struct {
	streams map[string]*MJPEGStream
	lock    sync.Mutex
}

func NewMJPEGServer() *MJPEGServer {
	return &MJPEGServer{
		streams: make(map[string]*MJPEGStream),
	}
}

// Stream returns the stream registered under name, creating it on first use.
func (s *MJPEGServer) Stream(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ms, ok := s.streams[name]; ok {
		return ms
	}
	ms := &MJPEGStream{
		name:    name,
		clients: make(map[chan []byte]bool),
	}
	s.streams[name] = ms
	return ms
}

func (s *MJPEGServer) lookup(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.streams[name]
}

// ServeHTTP implements http.Handler interface, serving MJPEG.
func (s *MJPEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	stream := s.lookup(name)
	if stream == nil {
		http.Error(w, "unknown stream "+name, http.StatusNotFound)
		return
	}

	clog := log.WithField("addr", r.RemoteAddr)
	clog.Infof("MJPEG client connected to %v", name)
	defer clog.Infof("MJPEG client disconnected from %v", name)

	c := stream.subscribe()
	defer stream.unsubscribe(c)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary="+mjpegBoundary)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case part := <-c:
			if _, err := w.Write(part); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// MJPEGStream is a Sink that encodes frames only while someone is watching.
type MJPEGStream struct {
	name    string
	clients map[chan []byte]bool
	lock    sync.Mutex
}

func (s *MJPEGStream) subscribe() chan []byte {
	c := make(chan []byte, 1)
	s.lock.Lock()
	s.clients[c] = true
	s.lock.Unlock()
	return c
}

func (s *MJPEGStream) unsubscribe(c chan []byte) {
	s.lock.Lock()
	delete(s.clients, c)
	s.lock.Unlock()
}

// Watchers returns the number of connected clients.
func (s *MJPEGStream) Watchers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

func (s *MJPEGStream) Put(frame gocv.Mat) {
	if s.Watchers() == 0 {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		log.Errorf("Error encoding JPEG for MJPEG stream %v: %v", s.name, err)
		return
	}
	jpeg := buf.GetBytes()
	header := fmt.Sprintf(mjpegPartHeader, len(jpeg))
	// Each client gets its own slice; the native buffer is freed right away.
	part := make([]byte, 0, len(header)+len(jpeg))
	part = append(part, header...)
	part = append(part, jpeg...)
	buf.Close()

	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c <- part:
		default:
			// Slow client; it will pick up a later frame.
		}
	}
}

// Close is a no-op: streams outlive individual runs so clients stay connected
// between sessions.
func (s *MJPEGStream) Close() {}
