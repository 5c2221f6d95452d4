package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
	"github.com/mirage-hunt/mirage/internal/pkg/logging"
)

// Pinger is a backend the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Verifier    *usecases.AnswerVerifier
	Targets     *usecases.TargetService
	Leaderboard *usecases.LeaderboardService
	Questions   ports.QuestionCache
	Logs        *logging.RingBuffer
	NATS        *nats.Conn // live feed relay, may be nil
	DB          Pinger
	Events      Pinger
	Cache       Pinger
	Version     string
}
