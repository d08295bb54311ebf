// Package websocket streams pipeline stage events to connected operators.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"orderetl/internal/middleware"
	"orderetl/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ErrHubBusy is returned when the broadcast queue is full
var ErrHubBusy = errors.New("websocket hub broadcast queue full")

// ViewerRoles may follow pipeline runs live
var ViewerRoles = []string{middleware.RoleAdmin, middleware.RoleOperator, middleware.RoleViewer}

const (
	queueSize  = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans stage events out to every subscriber, one JSON document per frame
type Hub struct {
	events     chan []byte
	register   chan *subscriber
	unregister chan *subscriber
	done       chan struct{}

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		events:     make(chan []byte, queueSize),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		done:       make(chan struct{}),
		subs:       make(map[*subscriber]struct{}),
	}
}

// BroadcastJSON queues v for every subscriber. It never blocks the caller:
// when the queue is full the event is dropped and ErrHubBusy returned.
func (h *Hub) BroadcastJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.events <- b:
		return nil
	default:
		return ErrHubBusy
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run dispatches events until ctx is done, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subs {
				h.drop(s)
			}
			h.mu.Unlock()
			return
		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			n := len(h.subs)
			h.mu.Unlock()
			slog.Info("websocket subscriber joined", "subscribers", n)
		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				h.drop(s)
			}
			n := len(h.subs)
			h.mu.Unlock()
			slog.Info("websocket subscriber left", "subscribers", n)
		case msg := <-h.events:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.send <- msg:
				default:
					slog.Warn("websocket subscriber too slow, disconnecting")
					h.drop(s)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop requires h.mu
func (h *Hub) drop(s *subscriber) {
	delete(h.subs, s)
	close(s.send)
}

// Handler subscribes a peer authenticated by the token query parameter.
func (h *Hub) Handler(auth *middleware.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "token is missing"))
			return
		}
		id, err := auth.Verify(raw)
		if err != nil {
			code := middleware.VerifyStatus(err)
			slog.Warn("websocket connection rejected", "error", err)
			c.AbortWithStatusJSON(code, response.Error(code, err.Error()))
			return
		}
		if !slices.Contains(ViewerRoles, id.Role) {
			slog.Warn("websocket connection rejected", "role", id.Role)
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		s := &subscriber{conn: conn, send: make(chan []byte, queueSize)}
		select {
		case h.register <- s:
		case <-h.done:
			_ = conn.Close()
			return
		}
		go h.writePump(s)
		go h.readPump(s)
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for pongs and the close frame
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}
