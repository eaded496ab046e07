package reload

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

const (
	sseClientBuffer = 8
	sseHeartbeat    = 30 * time.Second
)

// SSEHub serves reload messages as a server-sent event stream.
type SSEHub struct {
	mu        sync.RWMutex
	nextID    int
	clients   map[int]*sseClient
	recorder  metrics.Recorder
	closed    bool
	lastID    string
	heartbeat time.Duration
}

type sseClient struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

// NewSSEHub creates a hub. A nil recorder disables metrics.
func NewSSEHub(rec metrics.Recorder) *SSEHub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &SSEHub{clients: map[int]*sseClient{}, recorder: rec, heartbeat: sseHeartbeat}
}

// Clients returns the number of connected streams.
func (h *SSEHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP implements the event-stream endpoint.
func (h *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{ch: make(chan []byte, sseClientBuffer), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetReloadClients(count)
	defer h.removeClient(client.id)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("livereload write", logfields.Error(err))
		return
	}
	if err := bw.Flush(); err != nil {
		return
	}
	flusher.Flush()

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				slog.Debug("livereload ping write", logfields.Error(err))
				return
			}
		case data := <-client.ch:
			if _, err := bw.WriteString("data: " + string(data) + "\n\n"); err != nil {
				slog.Debug("livereload broadcast write", logfields.Error(err))
				return
			}
		}
		if err := bw.Flush(); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *SSEHub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetReloadClients(count)
	}
}

// Notify broadcasts msg to all streams. A message repeating the previous ID is
// ignored, and clients whose buffers are full are dropped.
func (h *SSEHub) Notify(_ context.Context, msg Message) error {
	data, err := msg.encode()
	if err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed || (msg.ID != "" && msg.ID == h.lastID) {
		h.mu.Unlock()
		return nil
	}
	h.lastID = msg.ID
	snapshot := make([]*sseClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- data:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncReloadBroadcast(string(msg.Kind))
	slog.Debug("livereload broadcast",
		logfields.Reload(string(msg.Kind)),
		logfields.Count(len(snapshot)),
		slog.Int("dropped", dropped))
	return nil
}

// Shutdown disconnects all clients and rejects new ones.
func (h *SSEHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*sseClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetReloadClients(0)
}
