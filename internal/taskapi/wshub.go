package taskapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vn6295337/Researcher-Agent/internal/task"
)

const maxWSConnections = 200

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MetricsHub streams a task's partial metrics over WebSocket, additive
// to the poll-based tasks/get JSON-RPC method (SPEC_FULL.md's domain
// stack). One broadcaster loop serves every subscriber, following the
// single-broadcaster pattern of control_plane/ws_hub.go.
type MetricsHub struct {
	manager *task.Manager

	mu      sync.RWMutex
	clients map[*websocket.Conn]string // conn -> taskID

	register   chan registration
	unregister chan *websocket.Conn
}

type registration struct {
	conn   *websocket.Conn
	taskID string
}

// NewMetricsHub builds a hub over manager. Call Run in a goroutine to
// start the broadcaster loop.
func NewMetricsHub(manager *task.Manager) *MetricsHub {
	return &MetricsHub{
		manager:    manager,
		clients:    make(map[*websocket.Conn]string),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
	}
}

// Run drives registration, unregistration, and the periodic broadcast
// tick until ctx is canceled.
func (h *MetricsHub) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case reg := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxWSConnections {
				h.mu.Unlock()
				reg.conn.Close()
				log.Printf("[stream] connection rejected: max connections (%d) reached", maxWSConnections)
				continue
			}
			h.clients[reg.conn] = reg.taskID
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.broadcastAll(ctx)
		}
	}
}

func (h *MetricsHub) broadcastAll(ctx context.Context) {
	h.mu.RLock()
	snapshot := make(map[*websocket.Conn]string, len(h.clients))
	for conn, id := range h.clients {
		snapshot[conn] = id
	}
	h.mu.RUnlock()

	tasks := make(map[string]any)
	for _, id := range snapshot {
		if _, done := tasks[id]; done {
			continue
		}
		t, err := h.manager.Get(ctx, id)
		if err != nil {
			continue
		}
		tasks[id] = taskView(t)
	}

	for conn, id := range snapshot {
		view, ok := tasks[id]
		if !ok {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(view); err != nil {
			go h.Unregister(conn)
		}
	}
}

func (h *MetricsHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]string)
}

// Register adds a new client connection for taskID.
func (h *MetricsHub) Register(conn *websocket.Conn, taskID string) {
	h.register <- registration{conn: conn, taskID: taskID}
}

// Unregister removes a client connection.
func (h *MetricsHub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// ClientCount returns the number of connected clients.
func (h *MetricsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades a /stream/<taskID> request and registers the
// connection, following control_plane/api_stream.go's upgrade-then-pump
// shape.
func (h *MetricsHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/stream/")
	if taskID == "" {
		http.Error(w, "taskID required", http.StatusBadRequest)
		return
	}
	if _, err := h.manager.Get(r.Context(), taskID); err != nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] upgrade failed: %v", err)
		return
	}

	h.Register(conn, taskID)
	defer h.Unregister(conn)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[stream] error: %v", err)
			}
			break
		}
	}
}
