package reload

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

type countingRecorder struct {
	metrics.NoopRecorder
	mu         sync.Mutex
	broadcasts map[string]int
	clients    int
}

func (r *countingRecorder) IncReloadBroadcast(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broadcasts == nil {
		r.broadcasts = map[string]int{}
	}
	r.broadcasts[kind]++
}

func (r *countingRecorder) SetReloadClients(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = n
}

func (r *countingRecorder) snapshot() (map[string]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for k, v := range r.broadcasts {
		out[k] = v
	}
	return out, r.clients
}

func openStream(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	return reader
}

func readData(reader *bufio.Reader, timeout time.Duration) (string, bool) {
	found := make(chan string, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(found)
				return
			}
			if strings.HasPrefix(line, "data: ") {
				found <- strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				return
			}
		}
	}()
	select {
	case data, ok := <-found:
		return data, ok
	case <-time.After(timeout):
		return "", false
	}
}

func waitClients(t *testing.T, n func() int, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return n() == want }, time.Second, 5*time.Millisecond)
}

func TestSSEHub_BroadcastsMessage(t *testing.T) {
	rec := &countingRecorder{}
	hub := NewSSEHub(rec)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	reader := openStream(t, server.URL)
	waitClients(t, hub.Clients, 1)

	require.NoError(t, hub.Notify(t.Context(), Message{Kind: KindCSS, ID: "one", Paths: []string{"styles/main.css"}}))
	data, ok := readData(reader, time.Second)
	require.True(t, ok)
	assert.JSONEq(t, `{"kind":"css","id":"one","paths":["styles/main.css"]}`, data)

	broadcasts, clients := rec.snapshot()
	assert.Equal(t, 1, broadcasts["css"])
	assert.Equal(t, 1, clients)
}

func TestSSEHub_DuplicateIDIgnored(t *testing.T) {
	hub := NewSSEHub(nil)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	reader := openStream(t, server.URL)
	waitClients(t, hub.Clients, 1)

	require.NoError(t, hub.Notify(t.Context(), Message{Kind: KindReload, ID: "same"}))
	require.NoError(t, hub.Notify(t.Context(), Message{Kind: KindReload, ID: "same"}))
	require.NoError(t, hub.Notify(t.Context(), Message{Kind: KindReload, ID: "next"}))

	first, ok := readData(reader, time.Second)
	require.True(t, ok)
	assert.Contains(t, first, `"id":"same"`)
	second, ok := readData(reader, time.Second)
	require.True(t, ok)
	assert.Contains(t, second, `"id":"next"`)
}

func TestSSEHub_NoClientsIsNotAnError(t *testing.T) {
	hub := NewSSEHub(nil)
	defer hub.Shutdown()
	assert.NoError(t, hub.Notify(t.Context(), NewMessage(KindReload)))
}

func TestSSEHub_ShutdownRejectsClients(t *testing.T) {
	hub := NewSSEHub(nil)
	hub.Shutdown()
	hub.Shutdown()

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NoError(t, hub.Notify(t.Context(), NewMessage(KindReload)))
}

func TestSSEHub_SlowClientDropped(t *testing.T) {
	hub := NewSSEHub(nil)
	defer hub.Shutdown()
	slow := &sseClient{id: 99, ch: make(chan []byte), done: make(chan struct{})}
	hub.mu.Lock()
	hub.clients[slow.id] = slow
	hub.mu.Unlock()

	require.NoError(t, hub.Notify(t.Context(), NewMessage(KindReload)))
	assert.Equal(t, 0, hub.Clients())
	select {
	case <-slow.done:
	default:
		t.Fatal("dropped client was not closed")
	}
}

func TestWSHub_DeliversJSON(t *testing.T) {
	hub := NewWSHub(nil)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.DialContext(t.Context(), url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitClients(t, hub.Clients, 1)

	require.NoError(t, hub.Notify(t.Context(), Message{Kind: KindReload, ID: "ws-1"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, Message{Kind: KindReload, ID: "ws-1"}, got)
}

func TestWSHub_ClientDisconnectRemoves(t *testing.T) {
	hub := NewWSHub(nil)
	defer hub.Shutdown()
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.DialContext(t.Context(), url, nil)
	require.NoError(t, err)
	waitClients(t, hub.Clients, 1)
	require.NoError(t, conn.Close())
	waitClients(t, hub.Clients, 0)
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	var seen []Message
	record := NotifierFunc(func(_ context.Context, msg Message) error {
		seen = append(seen, msg)
		return nil
	})
	boom := errors.New("boom")
	failing := NotifierFunc(func(context.Context, Message) error { return boom })

	m := Multi{record, nil, failing, record}
	err := m.Notify(t.Context(), Message{Kind: KindCSS})
	require.ErrorIs(t, err, boom)
	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0].ID)
	assert.Equal(t, seen[0].ID, seen[1].ID)
}

func TestErrorMessage(t *testing.T) {
	msg := ErrorMessage(errors.New("sass failed"))
	assert.Equal(t, KindError, msg.Kind)
	assert.Equal(t, "sass failed", msg.Error)
	assert.NotEmpty(t, msg.ID)
}

func TestClientScriptHandlesKinds(t *testing.T) {
	for _, want := range []string{"/livereload", "'css'", "'reload'", "'error'", "location.reload()"} {
		assert.Contains(t, ClientScript, want)
	}
	assert.Contains(t, Tag, ScriptPath)
}
