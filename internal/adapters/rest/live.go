package rest

import (
	"bytes"
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ewilliams-labs/visualizer/internal/core/services"
	"github.com/ewilliams-labs/visualizer/internal/driver"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxCommand = 4096
)

// liveMessage is the JSON text frame of the live protocol. A "frame" message
// is followed by one binary message holding the PNG.
type liveMessage struct {
	Type   string         `json:"type"`
	Status *driver.Status `json:"status,omitempty"`
	Error  string         `json:"error,omitempty"`
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Live handles GET /sessions/{id}/live. It upgrades to a websocket that
// streams composited frames and accepts transport commands as JSON.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("WARN rest: live upgrade for %s: %v", s.ID, err)
		return
	}
	defer conn.Close()

	previews, unsubscribe := s.Subscribe()
	defer unsubscribe()

	replies := make(chan liveMessage, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLive(conn, previews, replies)
	}()

	readLive(r, conn, s, replies)
	unsubscribe()
	close(replies)
	<-done
}

// readLive applies incoming commands until the client goes away.
func readLive(r *http.Request, conn *websocket.Conn, s *services.Session, replies chan<- liveMessage) {
	conn.SetReadLimit(maxCommand)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN rest: live read for %s: %v", s.ID, err)
			}
			return
		}
		var cmd services.TransportCommand
		var reply liveMessage
		if err := json.Unmarshal(raw, &cmd); err != nil {
			reply = liveMessage{Type: "error", Error: "invalid command: " + err.Error()}
		} else if status, err := s.Transport(r.Context(), cmd); err != nil {
			reply = liveMessage{Type: "error", Status: &status, Error: err.Error()}
		} else {
			reply = liveMessage{Type: "status", Status: &status}
		}
		select {
		case replies <- reply:
		default:
			log.Printf("WARN rest: live replies for %s backed up, dropping", s.ID)
		}
	}
}

// writeLive is the connection's only writer. It closes the connection on
// return so a blocked reader wakes up.
func writeLive(conn *websocket.Conn, previews <-chan services.Preview, replies <-chan liveMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()
	var buf bytes.Buffer

	for {
		select {
		case p, ok := <-previews:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			buf.Reset()
			if err := pngEncoder.Encode(&buf, p.Frame); err != nil {
				log.Printf("WARN rest: encode live frame: %v", err)
				continue
			}
			status := p.Status
			if err := writeText(conn, liveMessage{Type: "frame", Status: &status}); err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
				return
			}
		case msg, ok := <-replies:
			if !ok {
				return
			}
			if err := writeText(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeText(conn *websocket.Conn, msg liveMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
