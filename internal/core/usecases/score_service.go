package usecases

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

// ScoreService maintains the durable points ledger.
type ScoreService struct {
	awards        ports.AwardRepository
	events        ports.EventPublisher
	pointsPerFind int
}

// NewScoreService creates a ScoreService. events may be nil.
func NewScoreService(awards ports.AwardRepository, events ports.EventPublisher, pointsPerFind int) *ScoreService {
	return &ScoreService{awards: awards, events: events, pointsPerFind: pointsPerFind}
}

// Award credits the team for the question once. Repeated calls for the same
// pair report false and change nothing.
func (s *ScoreService) Award(ctx context.Context, teamID, questionID string) (bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAwardPoints)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrTeamID, teamID),
		attribute.String(telemetry.AttrQuestionID, questionID),
	)

	if teamID == "" || questionID == "" {
		return false, fmt.Errorf("award: %w", domain.ErrMalformedRequest)
	}
	awarded, err := s.awards.Award(ctx, teamID, questionID, s.pointsPerFind)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("award %s to %s: %w", questionID, teamID, err)
	}
	return awarded, nil
}

// Standings returns the ranked ledger.
func (s *ScoreService) Standings(ctx context.Context) ([]domain.Standing, error) {
	rows, err := s.awards.Standings(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	Rank(rows)
	return rows, nil
}

// PublishStandings broadcasts the ranked ledger.
func (s *ScoreService) PublishStandings(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	rows, err := s.Standings(ctx)
	if err != nil {
		return err
	}
	return s.events.PublishStandings(ctx, rows)
}
