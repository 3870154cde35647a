package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/models"
)

// Hub is the broadcast group: it tracks every live connection and fans
// notifications out to all of them, regardless of each session's own
// round state.
type Hub struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan *GameEvent
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512, // inbound frames are tiny: {"type":"click"}
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewHub creates a new connection hub
func NewHub(config ConnectionConfig) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan *GameEvent, 1000), // Buffer for high throughput
	}
}

// Run begins processing broadcast messages
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("hub shutting down")
			return
		case event := <-h.broadcastCh:
			h.handleBroadcast(event)
		}
	}
}

// Broadcast queues an event for delivery to every live connection.
func (h *Hub) Broadcast(event *GameEvent) {
	select {
	case h.broadcastCh <- event:
	default:
		log.Warn().Str("event_type", string(event.Type)).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastEntry wraps a settled leaderboard entry in its wire event
// and broadcasts it. Satisfies leaderboard.Broadcaster.
func (h *Hub) BroadcastEntry(entry models.LeaderboardEntry) {
	event, err := NewGameEvent(EventTypeLeaderboardUpdate, entry, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("failed to build leaderboard update event")
		return
	}
	h.Broadcast(event)
}

// register adds a connection to the hub
func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

// unregister removes a connection from the hub. Closing conn.done,
// not conn.Send, ends the write pump: the session loop and the
// broadcast goroutine may still hold the connection and send on it.
// The existence check makes the close happen exactly once.
func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		close(conn.done)

		log.Info().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Msg("connection unregistered")
	}
}

// handleBroadcast delivers one event to every live connection
func (h *Hub) handleBroadcast(event *GameEvent) {
	// Create a snapshot of connections to avoid holding lock during broadcast
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	// Marshal the event once
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		// A connection can unregister between the snapshot and the send
		select {
		case <-conn.done:
			continue
		default:
		}

		select {
		case conn.Send <- data:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID.String()).
				Msg("connection send buffer full, closing connection")
			h.unregister(conn)
			conn.conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
