package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	PublishMsg(*nats.Msg) error
	Drain() error
}

// NATSPublisher publishes snapshots on a NATS subject.
type NATSPublisher struct {
	nc      natsConn
	subject string
}

// NewNATSPublisher connects to the NATS server. Once connected, the connection reconnects indefinitely.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(
		url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.Any("err", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return newNATSPublisher(nc, subject), nil
}

func newNATSPublisher(nc natsConn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, payload []byte) error {
	header := nats.Header{}
	header.Set("Content-Type", "application/json")
	if deadline, ok := ctx.Deadline(); ok {
		header.Set("Deadline", deadline.UTC().Format(time.RFC3339Nano))
	}
	if err := p.nc.PublishMsg(&nats.Msg{Subject: p.subject, Data: payload, Header: header}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
