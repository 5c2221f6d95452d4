package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

// noTeamMarker is cached for users without a team.
var noTeamMarker = []byte("null")

// TeamDirectory resolves a user's team from the store through a short-lived
// read-through cache. Store lookups are bounded by a timeout; failures surface
// as domain.ErrTeamDirectoryUnavailable.
type TeamDirectory struct {
	teams   ports.TeamRepository
	cache   ports.CacheService
	ttl     int
	timeout time.Duration
}

// NewTeamDirectory creates a TeamDirectory. cache may be nil.
func NewTeamDirectory(teams ports.TeamRepository, cache ports.CacheService, ttlSeconds int, timeout time.Duration) *TeamDirectory {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &TeamDirectory{teams: teams, cache: cache, ttl: ttlSeconds, timeout: timeout}
}

// TeamOf returns the team of userID or domain.ErrNoTeam.
func (d *TeamDirectory) TeamOf(ctx context.Context, userID string) (*domain.Team, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanTeamLookup)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrUserID, userID))

	if userID == "" {
		return nil, domain.ErrNoTeam
	}

	key := "team:user:" + userID
	if d.cache != nil && d.ttl > 0 {
		if data, err := d.cache.Get(ctx, key); err == nil {
			metrics.CacheHits.WithLabelValues("team_of").Inc()
			var team *domain.Team
			if err := json.Unmarshal(data, &team); err == nil {
				if team == nil {
					return nil, domain.ErrNoTeam
				}
				return team, nil
			}
		} else {
			metrics.CacheMisses.WithLabelValues("team_of").Inc()
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	team, err := d.teams.TeamOfUser(lookupCtx, userID)
	metrics.TeamLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrNoTeam), err == nil && team == nil:
		d.remember(ctx, key, noTeamMarker)
		return nil, domain.ErrNoTeam
	case err != nil:
		span.RecordError(err)
		return nil, fmt.Errorf("team of %s: %w: %w", userID, domain.ErrTeamDirectoryUnavailable, err)
	}

	if data, err := json.Marshal(team); err == nil {
		d.remember(ctx, key, data)
	}
	span.SetAttributes(attribute.String(telemetry.AttrTeamID, team.ID))
	return team, nil
}

func (d *TeamDirectory) remember(ctx context.Context, key string, data []byte) {
	if d.cache == nil || d.ttl <= 0 {
		return
	}
	if err := d.cache.Set(ctx, key, data, d.ttl); err != nil {
		slog.Debug("team cache set failed", "key", key, "error", err)
	}
}
