package ports

import (
	"context"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// QuestionRepository persists questions and the teams that found them.
type QuestionRepository interface {
	// ListWithFinds returns every question with its persisted FoundBy set.
	ListWithFinds(ctx context.Context) ([]domain.Question, error)
	UpsertBatch(ctx context.Context, questions []domain.Question) error
	// SaveFinds stores finds idempotently; already stored pairs are ignored.
	SaveFinds(ctx context.Context, finds []domain.Find) error
	ResetFinds(ctx context.Context) error
}

// TeamRepository persists teams and their memberships.
type TeamRepository interface {
	// TeamOfUser returns the full team of userID, or domain.ErrNoTeam.
	TeamOfUser(ctx context.Context, userID string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	UpsertBatch(ctx context.Context, teams []domain.Team) error
}

// AwardRepository keeps the durable points ledger.
type AwardRepository interface {
	// Award credits points once per (team, question); it reports whether a new award was made.
	Award(ctx context.Context, teamID, questionID string, points int) (bool, error)
	Standings(ctx context.Context) ([]domain.Standing, error)
	Reset(ctx context.Context) error
}
