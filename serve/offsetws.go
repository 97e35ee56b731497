package serve

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"holecenter/notify"
	"holecenter/video"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second

	// Messages queued per client before the client starts missing readings.
	clientBacklog = 8
)

// Message is the envelope sent to offset feed clients.
type Message struct {
	Type         string               `json:"type"`
	Reading      *video.Reading       `json:"reading,omitempty"`
	Run          *RunInfo             `json:"run,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

// OffsetUpdater pushes live readings, run transitions and alignment events to
// websocket clients.
type OffsetUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	msgc     chan []byte
	closec   chan struct{}
}

func NewOffsetUpdater() *OffsetUpdater {
	m := &OffsetUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan []byte]bool),
		addc:   make(chan chan []byte),
		delc:   make(chan chan []byte),
		msgc:   make(chan []byte, 16),
		closec: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
			case c := <-m.delc:
				delete(m.cs, c)
			case msg := <-m.msgc:
				for c := range m.cs {
					select {
					case c <- msg:
					default:
					}
				}
			case <-m.closec:
				return
			}
		}
	}()
	return m
}

func (m *OffsetUpdater) publish(msg *Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to encode %v message: %v", msg.Type, err)
		return
	}
	select {
	case m.msgc <- b:
	case <-m.closec:
	default:
		log.Debugf("Offset feed backlogged, dropping %v message", msg.Type)
	}
}

func (m *OffsetUpdater) ReadingUpdated(r *video.Reading) {
	m.publish(&Message{Type: "reading", Reading: r})
}

func (m *OffsetUpdater) RunStarted(s *video.RunSummary) {
	m.publish(&Message{Type: "run_started", Run: toRunInfo(s)})
}

func (m *OffsetUpdater) RunEnded(s *video.RunSummary) {
	m.publish(&Message{Type: "run_ended", Run: toRunInfo(s)})
}

func (m *OffsetUpdater) Notify(n *notify.Notification) error {
	m.publish(&Message{Type: "aligned", Notification: n})
	return nil
}

func (m *OffsetUpdater) Close() {
	close(m.closec)
}

func (m *OffsetUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for offset feed: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *OffsetUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to offset feed")
	defer func() {
		ws.Close()
		clog.Info("disconnected from offset feed")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	c := make(chan []byte, clientBacklog)
	select {
	case m.addc <- c:
	case <-m.closec:
		return
	}
	defer func() {
		select {
		case m.delc <- c:
		case <-m.closec:
		}
	}()

	// Incoming messages are ignored, but reading processes control frames and
	// notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-m.closec:
			return
		case msg := <-c:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
