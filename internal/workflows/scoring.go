package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ScoreInput is the input for the scoring workflow.
type ScoreInput struct {
	QuestionID string
	TeamID     string
	UserID     string
}

// ScoreResult reports what the workflow did.
type ScoreResult struct {
	Awarded   bool
	Published bool
}

// WorkflowID is deterministic per (question, team) so a redelivered find
// cannot start a second award.
func WorkflowID(in ScoreInput) string {
	return "score-" + in.QuestionID + "-" + in.TeamID
}

// ScoreWorkflow credits the team in the points ledger and, when the award is
// new, broadcasts the refreshed standings. A failed broadcast does not undo
// the award.
func ScoreWorkflow(ctx workflow.Context, input ScoreInput) (ScoreResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Scoring find", "question", input.QuestionID, "team", input.TeamID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	})

	var res ScoreResult
	if err := workflow.ExecuteActivity(ctx, "AwardPoints", input.TeamID, input.QuestionID).Get(ctx, &res.Awarded); err != nil {
		return res, err
	}
	if !res.Awarded {
		logger.Info("Find already scored", "question", input.QuestionID, "team", input.TeamID)
		return res, nil
	}

	pubCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	if err := workflow.ExecuteActivity(pubCtx, "PublishStandings").Get(ctx, nil); err != nil {
		logger.Warn("standings broadcast failed", "error", err)
		return res, nil
	}
	res.Published = true
	return res, nil
}
