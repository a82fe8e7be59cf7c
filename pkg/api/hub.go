package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZentaChain/zentalk-xchat/pkg/network"
)

const (
	// Frames queued per subscriber before events are dropped for it
	subscriberQueue = 64
	writeWait       = 10 * time.Second
	pingPeriod      = 30 * time.Second
)

// Event types pushed to subscribers
const (
	EventMessage = "message"
	EventContact = "contact"
)

// Event is the JSON document pushed over /api/v1/events
type Event struct {
	Type      string `json:"type"`
	Peer      string `json:"peer"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Hub fans dispatched events out to websocket subscribers. It implements
// network.Consumer and never blocks the dispatch goroutine: a subscriber
// whose queue is full misses the event.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

var _ network.Consumer = (*Hub)(nil)

// NewHub creates a hub accepting browser connections from localhost pages
// and allowedOrigins. Non-browser clients without an Origin header are
// always accepted.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return originAllowed(origin, allowedOrigins)
			},
		},
		clients: make(map[*subscriber]struct{}),
	}
}

// MessageReceived implements network.Consumer
func (h *Hub) MessageReceived(peer string, timestampMillis int64, text string) {
	h.publish(Event{Type: EventMessage, Peer: peer, Timestamp: timestampMillis, Text: text})
}

// ContactCreated implements network.Consumer
func (h *Hub) ContactCreated(peer string) {
	h.publish(Event{Type: EventContact, Peer: peer})
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Printf("⚠️  Websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, subscriberQueue)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[sub] = struct{}{}
	h.mu.Unlock()

	go h.writePump(sub)
	h.readPump(sub)
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.clients {
		delete(h.clients, sub)
		sub.close()
	}
}

func (h *Hub) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("⚠️  Failed to encode %s event: %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.clients {
		select {
		case sub.send <- data:
		default:
			log.Printf("⚠️  Subscriber queue full, %s event for %q dropped", ev.Type, ev.Peer)
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		sub.close()
	}
}

// readPump discards client frames; it only notices disconnects
func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(512)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}
