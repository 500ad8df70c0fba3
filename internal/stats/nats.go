package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

// NATSPublisher publishes game results to a NATS subject for downstream
// leaderboard and history consumers.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials NATS with the reconnect behavior used across services.
func Connect(natsURL string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) RecordResult(_ context.Context, res Result) error {
	envelope := map[string]any{
		"eventId":   uuid.New().String(),
		"eventType": "GameFinished",
		"roomId":    res.RoomID,
		"timestamp": res.FinishedAt,
		"payload":   res,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal result envelope: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish result to %s: %w", p.subject, err)
	}
	log.Info().Str("room_code", res.RoomCode).Str("subject", p.subject).Msg("game result published")
	return nil
}
