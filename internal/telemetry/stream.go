package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mission-runner/internal/logger"
)

const clientBuffer = 16

// Hub fans samples out to connected WebSocket clients. Slow clients drop
// samples rather than hold up the telemetry task.
type Hub struct {
	mu       sync.Mutex
	clients  map[chan Sample]struct{}
	conns    map[*websocket.Conn]struct{}
	closed   bool
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan Sample]struct{}),
		conns:   make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish never blocks.
func (h *Hub) Publish(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) subscribe() chan Sample {
	ch := make(chan Sample, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Sample) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// track reports false once the hub is closed.
func (h *Hub) track(ws *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[ws] = struct{}{}
	return true
}

func (h *Hub) untrack(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, ws)
	h.mu.Unlock()
}

// Close drops every connected client and refuses new ones. Upgraded
// connections are hijacked, so http.Server.Shutdown does not reach them.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mu.Unlock()

	for _, ws := range conns {
		_ = ws.Close()
	}
}

// ServeHTTP upgrades the request and streams samples as JSON until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache")
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Printf("[Telemetry] Error upgrading websocket: %q", err.Error())
		return
	}
	defer ws.Close()
	if !h.track(ws) {
		return
	}
	defer h.untrack(ws)

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// the reader only notices the client closing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case s := <-ch:
			s.Elapsed /= time.Millisecond
			if err := ws.WriteJSON(s); err != nil {
				logger.Log.Printf("[Telemetry] Error writing to socket: %q", err.Error())
				return
			}
		}
	}
}

// Serve listens on addr until ctx is cancelled, then disconnects every client.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.serve(ctx, ln)
}

func (h *Hub) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/telemetry", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
		h.Close()
	}()

	logger.Log.Printf("[Telemetry] streaming on ws://%s/telemetry", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
