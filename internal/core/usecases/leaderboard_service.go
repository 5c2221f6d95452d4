package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

const teamsCacheKey = "teams:all"

// LeaderboardService ranks teams by the questions they have solved.
type LeaderboardService struct {
	questions     ports.QuestionCache
	teams         ports.TeamRepository
	cache         ports.CacheService
	events        ports.EventPublisher
	pointsPerFind int
}

// NewLeaderboardService creates a LeaderboardService. cache and events may be nil.
func NewLeaderboardService(questions ports.QuestionCache, teams ports.TeamRepository, cache ports.CacheService, events ports.EventPublisher, pointsPerFind int) *LeaderboardService {
	return &LeaderboardService{
		questions:     questions,
		teams:         teams,
		cache:         cache,
		events:        events,
		pointsPerFind: pointsPerFind,
	}
}

// Standings returns every known team ranked by points, then by name.
// Teams with equal points share a rank.
func (s *LeaderboardService) Standings(ctx context.Context) ([]domain.Standing, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLeaderboard)
	defer span.End()

	teams, err := s.listTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	found := make(map[string]int)
	for _, q := range s.questions.All() {
		for _, teamID := range q.FoundBy {
			found[teamID]++
		}
	}

	rows := make([]domain.Standing, 0, len(teams))
	known := make(map[string]bool, len(teams))
	for _, t := range teams {
		known[t.ID] = true
		rows = append(rows, s.row(t.ID, t.Name, found[t.ID]))
	}
	// Finds by teams created after the roster was cached.
	for teamID, n := range found {
		if !known[teamID] {
			rows = append(rows, s.row(teamID, teamID, n))
		}
	}

	Rank(rows)
	return rows, nil
}

// Page returns a window of the standings and the total number of teams.
func (s *LeaderboardService) Page(ctx context.Context, offset, limit int) ([]domain.Standing, int, error) {
	rows, err := s.Standings(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(rows)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Standing{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return rows[offset:end], total, nil
}

// Broadcast publishes the current standings.
func (s *LeaderboardService) Broadcast(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	rows, err := s.Standings(ctx)
	if err != nil {
		return err
	}
	return s.events.PublishStandings(ctx, rows)
}

func (s *LeaderboardService) row(teamID, name string, found int) domain.Standing {
	return domain.Standing{TeamID: teamID, Name: name, Found: found, Points: found * s.pointsPerFind}
}

func (s *LeaderboardService) listTeams(ctx context.Context) ([]domain.Team, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, teamsCacheKey); err == nil {
			var teams []domain.Team
			if err := json.Unmarshal(data, &teams); err == nil {
				metrics.CacheHits.WithLabelValues("teams").Inc()
				return teams, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("teams").Inc()
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(teams); err == nil {
			if err := s.cache.Set(ctx, teamsCacheKey, data, 60); err != nil {
				slog.Debug("teams cache set failed", "error", err)
			}
		}
	}
	return teams, nil
}

// Rank sorts rows by points descending, then name, then team ID, and assigns
// competition ranks (1, 1, 3).
func Rank(rows []domain.Standing) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].TeamID < rows[j].TeamID
	})
	for i := range rows {
		if i > 0 && rows[i].Points == rows[i-1].Points {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}
}
