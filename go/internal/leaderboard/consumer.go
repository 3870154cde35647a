package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/clickrush/go/internal/models"
)

// Consumer subscribes to settled-score events and feeds them to the
// local board and broadcast group. Delivery is at-most-once; receivers
// are order-tolerant via the settled_at timestamp.
type Consumer struct {
	nc          *nats.Conn
	subject     string
	board       *Board
	broadcaster Broadcaster
}

// NewConsumer creates a consumer over an existing NATS connection.
func NewConsumer(nc *nats.Conn, subject string, board *Board, broadcaster Broadcaster) *Consumer {
	return &Consumer{
		nc:          nc,
		subject:     subject,
		board:       board,
		broadcaster: broadcaster,
	}
}

// Start consumes settled-score events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Str("subject", c.subject).Msg("starting leaderboard consumer")

	messageCh := make(chan *nats.Msg, 100)
	sub, err := c.nc.ChanSubscribe(c.subject, messageCh)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("leaderboard consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := c.processMessage(msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject).
					Msg("failed to process message")
			}
		}
	}
}

// processMessage unwraps one settled-score event and distributes it.
func (c *Consumer) processMessage(msg *nats.Msg) error {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	if envelope.EventType != eventTypeScoreSettled {
		log.Warn().Str("event_type", envelope.EventType).Msg("unknown event type - ignoring")
		return nil
	}

	var entry models.LeaderboardEntry
	if err := json.Unmarshal(envelope.Payload, &entry); err != nil {
		return fmt.Errorf("unmarshal entry payload: %w", err)
	}

	c.board.Add(entry)
	c.broadcaster.BroadcastEntry(entry)

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("user_id", entry.UserID.String()).
		Int("score", entry.Score).
		Msg("leaderboard entry broadcasted")

	return nil
}
