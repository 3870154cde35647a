package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/game"
)

// Connection binds one WebSocket to one game session. Inbound frames
// are routed into the session loop; notifications come back out through
// Emit onto the write pump, preserving emission order.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	Username string
	Send     chan []byte

	// done is closed by the hub on unregister. Send is never closed:
	// the session loop and the hub broadcast goroutine may still be
	// emitting while the connection tears down, and a send on a closed
	// channel would panic the process. Writers check done and drop.
	done chan struct{}

	conn    *websocket.Conn
	hub     *Hub
	session *game.Session
	clock   clockwork.Clock

	ConnectedAt time.Time
}

func newConnection(ws *websocket.Conn, hub *Hub, userID uuid.UUID, username string, clock clockwork.Clock) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Username:    username,
		Send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		conn:        ws,
		hub:         hub,
		clock:       clock,
		ConnectedAt: clock.Now(),
	}
}

// start registers the connection and launches the session loop and the
// read/write pumps. The session must be attached first.
func (c *Connection) start(ctx context.Context) {
	c.hub.register(c)
	go c.session.Run(ctx)
	go c.writePump()
	go c.readPump()
}

// Emit implements game.Emitter. Called only from the session loop, so
// frames enter the send buffer in emission order. The session loop can
// outlive the connection by one event; emissions after unregister are
// dropped.
func (c *Connection) Emit(n game.Notification) {
	select {
	case <-c.done:
		return
	default:
	}

	event, err := FromNotification(n, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to convert notification")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal notification")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("event_type", string(event.Type)).
			Msg("send buffer full, dropping notification")
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
// When it exits the session is closed, which cancels all of the
// session's pending round timers.
func (c *Connection) readPump() {
	defer func() {
		c.session.Close()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}

// handleClientMessage routes an inbound frame to the session. Frames
// that do not parse or carry an unknown type are ignored.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Str("connection_id", c.ID).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case ClientMessageStart:
		c.session.HandleStart()
	case ClientMessageClick:
		c.session.HandleClick()
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", string(msg.Type)).
			Msg("ignoring unknown client message type")
	}
}
