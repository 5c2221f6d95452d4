package domain

import (
	"slices"
	"time"
)

// Question is a geolocated riddle players must answer on site.
type Question struct {
	ID              string   `json:"id"`
	Title           string   `json:"title,omitempty"`
	Prompt          string   `json:"prompt"`
	CanonicalAnswer string   `json:"-"`
	Location        GeoPoint `json:"location"`
	FoundBy         []string `json:"foundBy"` // team IDs, each at most once
}

// Clone returns a copy whose FoundBy slice is not shared with q.
func (q Question) Clone() Question {
	q.FoundBy = slices.Clone(q.FoundBy)
	if q.FoundBy == nil {
		q.FoundBy = []string{}
	}
	return q
}

// FoundCount is the number of distinct teams that solved the question.
func (q Question) FoundCount() int {
	return len(q.FoundBy)
}

// FoundByTeam reports whether teamID already solved the question.
func (q Question) FoundByTeam(teamID string) bool {
	return teamID != "" && slices.Contains(q.FoundBy, teamID)
}

// Target is the question handed to a player together with where they stand relative to it.
type Target struct {
	Question
	FoundCount     int     `json:"foundCount"`
	DistanceMeters float64 `json:"distanceMeters"`
	InRange        bool    `json:"inRange"`
	Fallback       bool    `json:"fallback,omitempty"` // served from the full set: the team solved everything
}

// Find records that a team solved a question.
type Find struct {
	QuestionID string    `json:"questionId"`
	TeamID     string    `json:"teamId"`
	FoundAt    time.Time `json:"foundAt"`
}

// FoundEvent is published whenever a team is credited for the first time.
type FoundEvent struct {
	QuestionID string    `json:"questionId"`
	TeamID     string    `json:"teamId"`
	UserID     string    `json:"userId"`
	FoundCount int       `json:"foundCount"`
	At         time.Time `json:"at"`
}
