package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// --- Mock TeamDirectory ---

type mockTeamDirectory struct {
	teamOfFn func(ctx context.Context, userID string) (*domain.Team, error)
}

func (m *mockTeamDirectory) TeamOf(ctx context.Context, userID string) (*domain.Team, error) {
	if m.teamOfFn != nil {
		return m.teamOfFn(ctx, userID)
	}
	return nil, domain.ErrNoTeam
}

// staticTeams maps users to teams.
func staticTeams(members map[string]string) *mockTeamDirectory {
	return &mockTeamDirectory{
		teamOfFn: func(ctx context.Context, userID string) (*domain.Team, error) {
			teamID, ok := members[userID]
			if !ok {
				return nil, domain.ErrNoTeam
			}
			return &domain.Team{ID: teamID, Name: teamID}, nil
		},
	}
}

// --- Mock TeamRepository ---

type mockTeamRepo struct {
	teamOfUserFn func(ctx context.Context, userID string) (*domain.Team, error)
	listFn       func(ctx context.Context) ([]domain.Team, error)
}

func (m *mockTeamRepo) TeamOfUser(ctx context.Context, userID string) (*domain.Team, error) {
	if m.teamOfUserFn != nil {
		return m.teamOfUserFn(ctx, userID)
	}
	return nil, domain.ErrNoTeam
}

func (m *mockTeamRepo) List(ctx context.Context) ([]domain.Team, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockTeamRepo) UpsertBatch(ctx context.Context, teams []domain.Team) error { return nil }

// --- Mock QuestionRepository ---

type mockQuestionRepo struct {
	listFn  func(ctx context.Context) ([]domain.Question, error)
	saveFn  func(ctx context.Context, finds []domain.Find) error
	resetFn func(ctx context.Context) error
}

func (m *mockQuestionRepo) ListWithFinds(ctx context.Context) ([]domain.Question, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockQuestionRepo) UpsertBatch(ctx context.Context, questions []domain.Question) error {
	return nil
}

func (m *mockQuestionRepo) SaveFinds(ctx context.Context, finds []domain.Find) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, finds)
	}
	return nil
}

func (m *mockQuestionRepo) ResetFinds(ctx context.Context) error {
	if m.resetFn != nil {
		return m.resetFn(ctx)
	}
	return nil
}

// --- Mock AwardRepository ---

type mockAwardRepo struct {
	awardFn     func(ctx context.Context, teamID, questionID string, points int) (bool, error)
	standingsFn func(ctx context.Context) ([]domain.Standing, error)
}

func (m *mockAwardRepo) Award(ctx context.Context, teamID, questionID string, points int) (bool, error) {
	if m.awardFn != nil {
		return m.awardFn(ctx, teamID, questionID, points)
	}
	return true, nil
}

func (m *mockAwardRepo) Standings(ctx context.Context) ([]domain.Standing, error) {
	if m.standingsFn != nil {
		return m.standingsFn(ctx)
	}
	return nil, nil
}

func (m *mockAwardRepo) Reset(ctx context.Context) error { return nil }

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	found     []domain.FoundEvent
	standings [][]domain.Standing
	err       error
}

func (m *mockPublisher) PublishFound(ctx context.Context, event *domain.FoundEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.found = append(m.found, *event)
	return m.err
}

func (m *mockPublisher) PublishStandings(ctx context.Context, standings []domain.Standing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standings = append(m.standings, standings)
	return m.err
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
