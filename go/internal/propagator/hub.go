package propagator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/stagetimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Hub manages websocket connections of displays following the timer
type Hub struct {
	connections map[*Connection]bool
	latest      []byte
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config HubConfig

	broadcastCh chan []byte
}

// Connection represents a WebSocket connection to a display
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	ConnectedAt time.Time
	LastPing    time.Time
}

// HubConfig holds configuration for WebSocket connections
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns default WebSocket configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// displays are served from anywhere on the stage network
			return true
		},
	}
}

// NewHub creates a new websocket hub
func NewHub(config HubConfig) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan []byte, 64),
	}
}

// Start processes broadcasts until ctx is done, then drops every connection
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("websocket hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("websocket hub shutting down")
			h.closeAll()
			return
		case message := <-h.broadcastCh:
			h.handleBroadcast(message)
		}
	}
}

// Publish queues rec for every connected display and remembers it for the
// next one to connect. It never blocks on slow clients.
func (h *Hub) Publish(ctx context.Context, rec models.TimerRecord) error {
	data, err := encodeSnapshot(rec, time.Now())
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.latest = data
	h.mu.Unlock()

	select {
	case h.broadcastCh <- data:
		return nil
	default:
		// Start is behind; new connections still get latest on connect
		return fmt.Errorf("broadcast channel full")
	}
}

// HandleWebSocket upgrades a display connection
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 16),
		Hub:         h,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	h.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}

// HandleStats returns statistics about active connections
func (h *Hub) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write hub stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/timer", h.HandleWebSocket)
	mux.HandleFunc("/ws/stats", h.HandleStats)
}

// HubStats summarises the hub
type HubStats struct {
	TotalConnections int  `json:"total_connections"`
	HasSnapshot      bool `json:"has_snapshot"`
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{
		TotalConnections: len(h.connections),
		HasSnapshot:      h.latest != nil,
	}
}

// registerConnection adds a connection and queues the latest snapshot for it
func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = true
	if h.latest != nil {
		conn.Send <- h.latest
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the hub
func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		close(conn.Send)

		log.Info().
			Str("connection_id", conn.ID).
			Msg("connection unregistered")
	}
}

func (h *Hub) handleBroadcast(message []byte) {
	var slow []*Connection

	h.mu.RLock()
	for conn := range h.connections {
		select {
		case conn.Send <- message:
		default:
			slow = append(slow, conn)
		}
	}
	total := len(h.connections)
	h.mu.RUnlock()

	// Connection is slow or dead, close it
	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		h.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Int("connections", total-len(slow)).
		Msg("timer snapshot broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.unregisterConnection(conn)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Hub.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only exists to process pongs and notice disconnects; displays
// send nothing.
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
	}
}
