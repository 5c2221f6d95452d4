package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

// Manifest is the game definition loaded by `ingestor load` and written by
// `ingestor backup`.
type Manifest struct {
	Questions []QuestionEntry `json:"questions"`
	Teams     []TeamEntry     `json:"teams"`
}

type QuestionEntry struct {
	ID      string   `json:"id,omitempty"` // generated when empty
	Title   string   `json:"title,omitempty"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	FoundBy []string `json:"foundBy,omitempty"` // backup only
}

type TeamEntry struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// ParseManifest decodes and validates a manifest. Every problem is reported,
// not just the first.
func ParseManifest(r io.Reader) ([]domain.Question, []domain.Team, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	var errs []error
	questions := make([]domain.Question, 0, len(m.Questions))
	seen := make(map[string]bool)
	for i, e := range m.Questions {
		id := uuid.NewString()
		if e.ID != "" {
			parsed, err := uuid.Parse(e.ID)
			if err != nil {
				errs = append(errs, fmt.Errorf("questions[%d]: invalid id %q", i, e.ID))
				continue
			}
			id = parsed.String()
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("questions[%d]: duplicate id %s", i, id))
			continue
		}
		seen[id] = true

		loc := domain.GeoPoint{Lat: e.Lat, Lng: e.Lng}
		switch {
		case strings.TrimSpace(e.Prompt) == "":
			errs = append(errs, fmt.Errorf("questions[%d]: prompt is required", i))
		case strings.TrimSpace(e.Answer) == "":
			errs = append(errs, fmt.Errorf("questions[%d]: answer is required", i))
		case !loc.Valid():
			errs = append(errs, fmt.Errorf("questions[%d]: location %v,%v out of range", i, e.Lat, e.Lng))
		default:
			questions = append(questions, domain.Question{
				ID:              id,
				Title:           e.Title,
				Prompt:          e.Prompt,
				CanonicalAnswer: e.Answer,
				Location:        loc,
				FoundBy:         e.FoundBy,
			})
		}
	}

	teams := make([]domain.Team, 0, len(m.Teams))
	memberOf := make(map[string]string)
	for i, e := range m.Teams {
		if e.ID == "" {
			errs = append(errs, fmt.Errorf("teams[%d]: id is required", i))
			continue
		}
		for _, u := range e.Members {
			if other, ok := memberOf[u]; ok {
				errs = append(errs, fmt.Errorf("teams[%d]: user %s already belongs to %s", i, u, other))
			}
			memberOf[u] = e.ID
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		teams = append(teams, domain.Team{ID: e.ID, Name: name, MemberUserIDs: e.Members})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	return questions, teams, nil
}

// BackupOf renders questions, with their answers and finds, as a manifest.
func BackupOf(questions []domain.Question, teams []domain.Team) Manifest {
	m := Manifest{
		Questions: make([]QuestionEntry, len(questions)),
		Teams:     make([]TeamEntry, len(teams)),
	}
	for i, q := range questions {
		m.Questions[i] = QuestionEntry{
			ID:      q.ID,
			Title:   q.Title,
			Prompt:  q.Prompt,
			Answer:  q.CanonicalAnswer,
			Lat:     q.Location.Lat,
			Lng:     q.Location.Lng,
			FoundBy: q.FoundBy,
		}
	}
	for i, t := range teams {
		m.Teams[i] = TeamEntry{ID: t.ID, Name: t.Name, Members: t.MemberUserIDs}
	}
	return m
}
