package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/answer"
	"github.com/mirage-hunt/mirage/internal/pkg/geospatial"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

// AnswerVerifier runs the checkAnswer workflow:
// validate, match text, check geofence, credit team, select next target.
// Only the credit step mutates state.
type AnswerVerifier struct {
	questions ports.QuestionCache
	teams     ports.TeamDirectory
	selector  *TargetSelector
	events    ports.EventPublisher
	radius    float64
	now       func() time.Time
}

// NewAnswerVerifier creates an AnswerVerifier. events may be nil.
func NewAnswerVerifier(questions ports.QuestionCache, teams ports.TeamDirectory, selector *TargetSelector, events ports.EventPublisher, radiusMeters float64) *AnswerVerifier {
	return &AnswerVerifier{
		questions: questions,
		teams:     teams,
		selector:  selector,
		events:    events,
		radius:    radiusMeters,
		now:       time.Now,
	}
}

// CheckAnswer resolves a submission into an outcome. Expected game outcomes
// (wrong answer, too far, unknown question, no team) are returned in the
// result; a non-nil error means an internal fault and nothing was credited.
func (v *AnswerVerifier) CheckAnswer(ctx context.Context, sub domain.Submission) (*domain.CheckResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCheckAnswer)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrQuestionID, sub.QuestionID),
		attribute.String(telemetry.AttrUserID, sub.UserID),
	)

	res, err := v.check(ctx, sub)
	if err != nil {
		span.RecordError(err)
		metrics.AnswersTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.AttrOutcome, res.Outcome.String()))
	metrics.AnswersTotal.WithLabelValues(res.Outcome.String()).Inc()
	slog.InfoContext(ctx, "answer checked",
		"question", sub.QuestionID,
		"user", sub.UserID,
		"outcome", res.Outcome.String(),
	)
	return res, nil
}

func (v *AnswerVerifier) check(ctx context.Context, sub domain.Submission) (*domain.CheckResult, error) {
	// Validated
	id, err := uuid.Parse(sub.QuestionID)
	if err != nil || sub.UserID == "" || !sub.Position.Valid() {
		return &domain.CheckResult{Outcome: domain.OutcomeMalformed}, nil
	}
	q, err := v.questions.Get(id.String())
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return &domain.CheckResult{Outcome: domain.OutcomeNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load question %s: %w", id, err)
	}

	// Answer check
	if !answer.Match(sub.Answer, q.CanonicalAnswer) {
		return &domain.CheckResult{Outcome: domain.OutcomeWrongAnswer}, nil
	}

	// GeoChecked
	if !geospatial.WithinGeofence(sub.Position, q.Location, v.radius) {
		return &domain.CheckResult{Outcome: domain.OutcomeTooFar}, nil
	}

	// Credited
	team, err := v.teams.TeamOf(ctx, sub.UserID)
	if errors.Is(err, domain.ErrNoTeam) {
		return &domain.CheckResult{Outcome: domain.OutcomeNoTeam}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check answer: %w", err)
	}

	solved, added, err := v.questions.RecordFound(q.ID, team.ID)
	if err != nil {
		return nil, fmt.Errorf("record found %s by %s: %w", q.ID, team.ID, err)
	}
	if added {
		metrics.CreditsTotal.Inc()
		v.publish(context.WithoutCancel(ctx), &domain.FoundEvent{
			QuestionID: solved.ID,
			TeamID:     team.ID,
			UserID:     sub.UserID,
			FoundCount: solved.FoundCount(),
			At:         v.now().UTC(),
		})
	}

	// Responded
	next, fallback, err := v.selector.Select(v.questions.All(), team.ID)
	if err != nil {
		return nil, fmt.Errorf("select next target: %w", err)
	}

	return &domain.CheckResult{
		Outcome:  domain.OutcomeCorrect,
		Question: &solved,
		Next:     describe(next, sub.Position, v.radius, fallback),
		Credited: added,
	}, nil
}

func (v *AnswerVerifier) publish(ctx context.Context, ev *domain.FoundEvent) {
	if v.events == nil {
		return
	}
	if err := v.events.PublishFound(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish found event failed",
			"question", ev.QuestionID,
			"team", ev.TeamID,
			"error", err,
		)
	}
}
