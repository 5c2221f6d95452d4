package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
)

// ScoringActivities holds the activity implementations for the scoring workflow.
type ScoringActivities struct {
	Scores *usecases.ScoreService
}

// AwardPoints credits the team once for the question.
func (a *ScoringActivities) AwardPoints(ctx context.Context, teamID, questionID string) (bool, error) {
	awarded, err := a.Scores.Award(ctx, teamID, questionID)
	if errors.Is(err, domain.ErrMalformedRequest) {
		return false, temporal.NewNonRetryableApplicationError(err.Error(), "malformed", err)
	}
	if err != nil {
		return false, err
	}
	activity.GetLogger(ctx).Info("points awarded", "team", teamID, "question", questionID, "new", awarded)
	return awarded, nil
}

// PublishStandings broadcasts the ledger standings.
func (a *ScoringActivities) PublishStandings(ctx context.Context) error {
	return a.Scores.PublishStandings(ctx)
}
