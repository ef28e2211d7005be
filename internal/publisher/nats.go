package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes each event on microlend.<event>. A publish only counts once
// the server has acknowledged the flush.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(url string) (*NATS, error) {
	logger := slog.Default().With("component", "nats")
	conn, err := nats.Connect(url,
		nats.Name("microlend-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func (p *NATS) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return fmt.Errorf("missing topic")
	}
	msg := nats.NewMsg(Subject(topic))
	msg.Data = payload
	if err := p.conn.PublishMsg(msg); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATS) Close() error {
	return p.conn.Drain()
}
