package ws

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/gorilla/websocket"
)

// RoomAll receives every upload regardless of category.
const RoomAll = "all"

const writeWait = 10 * time.Second

type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*websocket.Conn]*sync.Mutex
	log      *logger.ZapLogger
	upgrader websocket.Upgrader
}

// NewHub accepts browser connections from allowedOrigins ("*" allows any).
func NewHub(log *logger.ZapLogger, allowedOrigins []string) *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]*sync.Mutex),
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, strings.ToLower(o))
		}
	}
	allowAll := slices.Contains(origins, "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return slices.Contains(origins, strings.ToLower(u.Scheme+"://"+u.Host))
	}
}

func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return h.upgrader.Upgrade(w, r, nil)
}

func (h *Hub) Register(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	h.rooms[roomID][conn] = &sync.Mutex{}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "ws register",
		Fields:  map[string]any{"room": roomID, "conns": len(h.rooms[roomID])},
	})
}

func (h *Hub) Unregister(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}

	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		conn.Close()
	}

	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// RoomSize reports the number of live connections in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// SendToRoom writes msg to every connection of the room. A connection that
// fails or misses the write deadline is dropped.
func (h *Hub) SendToRoom(roomID string, msg []byte) {
	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}

	h.mu.RLock()
	targets := make([]target, 0, len(h.rooms[roomID]))
	for conn, wmu := range h.rooms[roomID] {
		targets = append(targets, target{conn, wmu})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.wmu.Lock()
		_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := t.conn.WriteMessage(websocket.TextMessage, msg)
		t.wmu.Unlock()
		if err != nil {
			h.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "ws send failed, dropping connection",
				Error:   err,
				Fields:  map[string]any{"room": roomID},
			})
			h.Unregister(roomID, t.conn)
		}
	}
}
