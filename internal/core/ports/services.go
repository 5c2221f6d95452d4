package ports

import (
	"context"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// QuestionCache is the process-wide authoritative view of the question set.
// Returned questions are copies; mutations only happen through RecordFound.
type QuestionCache interface {
	Get(id string) (domain.Question, error)
	All() []domain.Question
	// RecordFound adds teamID to the question's FoundBy set. It is idempotent and
	// reports whether the team was newly added.
	RecordFound(id, teamID string) (domain.Question, bool, error)
}

// SyncableQuestionCache is a QuestionCache that can be reconciled with the store.
type SyncableQuestionCache interface {
	QuestionCache
	Load(questions []domain.Question) error
	// Merge unions store-side questions and finds into the cache and reports how many questions were new.
	Merge(questions []domain.Question) int
	// PendingFinds returns unpersisted credits and the sequence to Ack once stored.
	PendingFinds() ([]domain.Find, uint64)
	Ack(seq uint64)
}

// TeamDirectory resolves the team of a user.
type TeamDirectory interface {
	TeamOf(ctx context.Context, userID string) (*domain.Team, error)
}

// EventPublisher publishes game events to a message broker.
type EventPublisher interface {
	PublishFound(ctx context.Context, event *domain.FoundEvent) error
	PublishStandings(ctx context.Context, standings []domain.Standing) error
}

// EventSubscriber subscribes to game events from a message broker.
type EventSubscriber interface {
	SubscribeFound(ctx context.Context, handler func(ctx context.Context, event *domain.FoundEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
