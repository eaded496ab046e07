package reload

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WSHub serves reload messages over websocket connections.
type WSHub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	recorder metrics.Recorder
	closed   bool
}

type wsClient struct {
	out  chan Message
	done chan struct{}
	once sync.Once
}

func (c *wsClient) stop() { c.once.Do(func() { close(c.done) }) }

// NewWSHub creates a websocket hub. A nil recorder disables metrics.
func NewWSHub(rec metrics.Recorder) *WSHub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &WSHub{clients: map[*wsClient]struct{}{}, recorder: rec}
}

// Clients returns the number of open connections.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("livereload ws upgrade", logfields.Error(err))
		return
	}
	defer conn.Close()

	client := &wsClient{out: make(chan Message, sseClientBuffer), done: make(chan struct{})}
	h.add(client)
	defer h.remove(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The read loop only exists to process control frames and notice closes.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(wsWriteWait))
			return
		case msg := <-client.out:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("livereload ws write", logfields.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetReloadClients(n)
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.stop()
	if ok {
		h.recorder.SetReloadClients(n)
	}
}

// Notify queues msg for every connection, dropping connections that cannot keep up.
func (h *WSHub) Notify(_ context.Context, msg Message) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	snapshot := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	for _, c := range snapshot {
		select {
		case c.out <- msg:
		default:
			h.remove(c)
		}
	}
	h.recorder.IncReloadBroadcast(string(msg.Kind))
	return nil
}

// Shutdown closes every connection with a going-away frame.
func (h *WSHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[*wsClient]struct{}{}
	h.mu.Unlock()
	for c := range clients {
		c.stop()
	}
	h.recorder.SetReloadClients(0)
}
