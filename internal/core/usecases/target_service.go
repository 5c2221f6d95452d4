package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/geospatial"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

// TargetService answers the high-frequency polling requests of players.
type TargetService struct {
	questions    ports.QuestionCache
	teams        ports.TeamDirectory
	selector     *TargetSelector
	radius       float64
	nearbyRadius float64
}

// NewTargetService creates a TargetService. radius is the answering geofence,
// nearbyRadius bounds Nearby results.
func NewTargetService(questions ports.QuestionCache, teams ports.TeamDirectory, selector *TargetSelector, radius, nearbyRadius float64) *TargetService {
	return &TargetService{
		questions:    questions,
		teams:        teams,
		selector:     selector,
		radius:       radius,
		nearbyRadius: nearbyRadius,
	}
}

// GetTarget selects the next question for the player at pos. Users without a
// team, or whose team cannot be resolved right now, get a team-less selection.
func (s *TargetService) GetTarget(ctx context.Context, pos domain.GeoPoint, userID string) (*domain.Target, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGetTarget)
	defer span.End()

	if !pos.Valid() || userID == "" {
		return nil, fmt.Errorf("get target: %w", domain.ErrMalformedRequest)
	}

	teamID := s.teamIDOf(ctx, userID)
	q, fallback, err := s.selector.Select(s.questions.All(), teamID)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}

	target := describe(q, pos, s.radius, fallback)
	metrics.TargetsServed.WithLabelValues(strconv.FormatBool(fallback)).Inc()
	span.SetAttributes(
		attribute.String(telemetry.AttrQuestionID, q.ID),
		attribute.String(telemetry.AttrTeamID, teamID),
		attribute.Bool(telemetry.AttrFallback, fallback),
	)
	return target, nil
}

// Nearby lists the questions within the nearby radius of pos, closest first.
// Questions already solved by the user's team are left out.
func (s *TargetService) Nearby(ctx context.Context, pos domain.GeoPoint, userID string) ([]domain.Target, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearby)
	defer span.End()

	if !pos.Valid() {
		return nil, fmt.Errorf("nearby: %w", domain.ErrMalformedRequest)
	}

	teamID := ""
	if userID != "" {
		teamID = s.teamIDOf(ctx, userID)
	}

	box := geospatial.BoundingBox(pos, s.nearbyRadius)
	out := make([]domain.Target, 0)
	for _, q := range s.questions.All() {
		if !box.Contains(q.Location) || q.FoundByTeam(teamID) {
			continue
		}
		t := describe(q, pos, s.radius, false)
		if t.DistanceMeters > s.nearbyRadius {
			continue
		}
		out = append(out, *t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out, nil
}

func (s *TargetService) teamIDOf(ctx context.Context, userID string) string {
	team, err := s.teams.TeamOf(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNoTeam):
		return ""
	case err != nil:
		slog.WarnContext(ctx, "team lookup failed, selecting without team", "user", userID, "error", err)
		return ""
	}
	return team.ID
}

func describe(q domain.Question, from domain.GeoPoint, radius float64, fallback bool) *domain.Target {
	d := geospatial.DistanceMeters(from, q.Location)
	return &domain.Target{
		Question:       q,
		FoundCount:     q.FoundCount(),
		DistanceMeters: d,
		InRange:        d <= radius,
		Fallback:       fallback,
	}
}
