package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// Subjects used by the game.
const (
	SubjectFoundPrefix = "game.found."
	SubjectFoundAll    = "game.found.>"
	SubjectLeaderboard = "game.leaderboard"

	StreamFinds = "GAME_FINDS"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url, "mirage-publisher")
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

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      StreamFinds,
			Subjects:  []string{SubjectFoundAll},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
			// Duplicate publishes of the same credit within the window are dropped.
			Duplicates: 10 * time.Minute,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; update it instead
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishFound publishes a first credit of a team on game.found.<questionId>.
func (p *Publisher) PublishFound(ctx context.Context, event *domain.FoundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFoundPrefix+event.QuestionID, data,
		nats.Context(ctx),
		nats.MsgId(event.QuestionID+":"+event.TeamID),
	)
	return err
}

// PublishStandings broadcasts the leaderboard to live listeners. Core NATS,
// not persisted.
func (p *Publisher) PublishStandings(ctx context.Context, standings []domain.Standing) error {
	data, err := json.Marshal(standings)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectLeaderboard, data)
}

// Ping reports whether the connection is up.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url, "mirage-relay")
}

func connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
