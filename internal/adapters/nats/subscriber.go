package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber whose consumers are named after durable.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := connect(url, durable)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeFound delivers every found event to handler. Events that fail to
// decode are terminated; handler errors are redelivered.
func (s *Subscriber) SubscribeFound(ctx context.Context, handler func(ctx context.Context, event *domain.FoundEvent) error) error {
	sub, err := s.js.Subscribe(SubjectFoundAll, func(msg *nats.Msg) {
		var event domain.FoundEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("dropping undecodable found event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			slog.Warn("found event handler failed", "question", event.QuestionID, "team", event.TeamID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable+"-found"),
		nats.ManualAck(),
		nats.MaxDeliver(5),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("subscribe found: %w", err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
