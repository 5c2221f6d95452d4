package usecases_test

import (
	"math"
	"testing"

	"github.com/mirage-hunt/mirage/internal/adapters/memory"
	"github.com/mirage-hunt/mirage/internal/core/domain"
)

const (
	bridgeID = "7d3f8c2a-4b1e-4f6a-9c0d-1e2f3a4b5c6d"
	clockID  = "0b9a8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
	towerID  = "5e4d3c2b-1a09-4f8e-9d7c-6b5a4f3e2d1c"
)

// Bilbao old town, a few hundred metres apart.
var (
	bridgeAt = domain.GeoPoint{Lat: 43.2587, Lng: -2.9236}
	clockAt  = domain.GeoPoint{Lat: 43.2569, Lng: -2.9253}
	towerAt  = domain.GeoPoint{Lat: 43.2620, Lng: -2.9190}
)

// metres per degree of latitude on the haversine sphere
const metersPerDegree = 6371000.0 * math.Pi / 180

func north(p domain.GeoPoint, meters float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + meters/metersPerDegree, Lng: p.Lng}
}

func newGame(t *testing.T) *memory.QuestionCache {
	t.Helper()
	c := memory.NewQuestionCache()
	err := c.Load([]domain.Question{
		{ID: bridgeID, Title: "Bridge", Prompt: "What is the bridge made of?", CanonicalAnswer: "Stone", Location: bridgeAt},
		{ID: clockID, Title: "Clock", Prompt: "What colour is the clock?", CanonicalAnswer: "Green", Location: clockAt},
		{ID: towerID, Title: "Tower", Prompt: "How many bells?", CanonicalAnswer: "seven", Location: towerAt},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func newEmptyCache(t *testing.T) *memory.QuestionCache {
	t.Helper()
	return memory.NewQuestionCache()
}
