package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/game"
	"github.com/mcdev12/clickrush/go/internal/identity"
	"github.com/mcdev12/clickrush/go/internal/leaderboard"
)

// UserRegistry reconciles verified identities with the local users
// table so settlement can resolve display names.
type UserRegistry interface {
	EnsureUser(ctx context.Context, id uuid.UUID, username string) error
}

// WebSocketHandler authenticates and upgrades game connections. The
// identity gate runs before the upgrade: no session state exists for a
// connection that fails verification.
type WebSocketHandler struct {
	hub       *Hub
	gate      identity.Gate
	registry  UserRegistry
	sink      game.Sink
	publisher game.Publisher
	board     *leaderboard.Board
	gameCfg   game.Config
	clock     clockwork.Clock
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *Hub, gate identity.Gate, registry UserRegistry, sink game.Sink, publisher game.Publisher, board *leaderboard.Board, gameCfg game.Config, clock clockwork.Clock) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		gate:      gate,
		registry:  registry,
		sink:      sink,
		publisher: publisher,
		board:     board,
		gameCfg:   gameCfg,
		clock:     clock,
	}
}

// HandleGameConnection verifies the supplied credential, upgrades the
// connection, and binds it to a fresh game session.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "credential is required", http.StatusUnauthorized)
		return
	}

	id, err := h.gate.Verify(r.Context(), token)
	if err != nil {
		log.Warn().Err(err).Msg("connection rejected by identity gate")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if h.registry != nil {
		if err := h.registry.EnsureUser(r.Context(), id.UserID, id.Username); err != nil {
			log.Warn().Err(err).Str("user_id", id.UserID.String()).Msg("could not reconcile user row")
		}
	}

	ws, err := h.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", id.UserID.String()).Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := newConnection(ws, h.hub, id.UserID, id.Username, h.clock)
	conn.session = game.NewSession(id.UserID, h.gameCfg, h.clock, game.NewMachine(), conn, h.sink, h.publisher)
	// The request context dies when this handler returns; the session
	// outlives it and is torn down by the read pump on disconnect.
	conn.start(context.Background())

	h.sendSnapshot(conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", id.UserID.String()).
		Str("username", id.Username).
		Msg("WebSocket connection established")
}

// sendSnapshot delivers the current top scores to a new connection.
func (h *WebSocketHandler) sendSnapshot(conn *Connection) {
	if h.board == nil {
		return
	}
	event, err := NewGameEvent(EventTypeLeaderboardSnapshot, LeaderboardSnapshotPayload{Entries: h.board.Entries()}, h.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to build leaderboard snapshot")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal leaderboard snapshot")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, dropping snapshot")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{\"total_connections\":" + strconv.Itoa(h.hub.ConnectionCount()) + "}"))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

// extractToken pulls the credential from the Authorization header or,
// for browser WebSocket clients that cannot set headers, the token
// query parameter.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return rest
		}
	}
	return r.URL.Query().Get("token")
}
