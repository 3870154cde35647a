package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/models"
)

// Broadcaster delivers a settled entry to every live connection.
// Satisfied by the gateway hub.
type Broadcaster interface {
	BroadcastEntry(entry models.LeaderboardEntry)
}

// eventEnvelope is the message format used on the wire between
// instances.
type eventEnvelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

const eventTypeScoreSettled = "ScoreSettled"

// LocalPublisher distributes settled entries within this process only:
// it updates the board and broadcasts to the local hub. Used when no
// message bus is configured.
type LocalPublisher struct {
	board       *Board
	broadcaster Broadcaster
}

func NewLocalPublisher(board *Board, broadcaster Broadcaster) *LocalPublisher {
	return &LocalPublisher{board: board, broadcaster: broadcaster}
}

func (p *LocalPublisher) Publish(ctx context.Context, entry *models.LeaderboardEntry) error {
	p.board.Add(*entry)
	p.broadcaster.BroadcastEntry(*entry)
	return nil
}

// NATSPublisher publishes settled entries to a NATS subject so every
// gateway instance can fan them out to its own connections.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, entry *models.LeaderboardEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	envelope := eventEnvelope{
		EventID:   uuid.New().String(),
		EventType: eventTypeScoreSettled,
		Timestamp: entry.SettledAt,
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", p.subject).
		Str("user_id", entry.UserID.String()).
		Int("score", entry.Score).
		Msg("published settled score")

	return nil
}

// Connect opens a NATS connection with reconnect handling.
func Connect(natsURL string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
