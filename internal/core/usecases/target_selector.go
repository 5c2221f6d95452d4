package usecases

import (
	"math/rand/v2"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// TargetSelector picks the next question to surface: the least found among
// those the team has not solved yet, ties broken uniformly at random.
type TargetSelector struct {
	intn func(n int) int
}

// NewTargetSelector returns a selector backed by the process-wide PRNG.
func NewTargetSelector() *TargetSelector {
	return &TargetSelector{intn: rand.IntN}
}

// NewTargetSelectorWithSource lets callers supply the tie-break source.
// intn must return a value in [0, n).
func NewTargetSelectorWithSource(intn func(n int) int) *TargetSelector {
	if intn == nil {
		intn = rand.IntN
	}
	return &TargetSelector{intn: intn}
}

// Select chooses among questions for teamID. An empty teamID means no team:
// nothing is excluded. When the team has solved everything the full set is
// used and fallback is true.
func (s *TargetSelector) Select(questions []domain.Question, teamID string) (q domain.Question, fallback bool, err error) {
	if len(questions) == 0 {
		return domain.Question{}, false, domain.ErrNoCandidates
	}

	candidates := make([]int, 0, len(questions))
	for i := range questions {
		if !questions[i].FoundByTeam(teamID) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		fallback = true
		for i := range questions {
			candidates = append(candidates, i)
		}
	}

	minCount := questions[candidates[0]].FoundCount()
	for _, i := range candidates[1:] {
		if c := questions[i].FoundCount(); c < minCount {
			minCount = c
		}
	}

	tied := candidates[:0]
	for _, i := range candidates {
		if questions[i].FoundCount() == minCount {
			tied = append(tied, i)
		}
	}

	return questions[tied[s.intn(len(tied))]], fallback, nil
}
