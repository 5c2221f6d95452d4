//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	handler "github.com/mirage-hunt/mirage/internal/adapters/http"
	"github.com/mirage-hunt/mirage/internal/adapters/memory"
	"github.com/mirage-hunt/mirage/internal/adapters/postgres"
	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
	"github.com/mirage-hunt/mirage/internal/pkg/config"
)

// setupTestDB connects to the test database and wipes the game tables.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("mirage-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.Pool.Exec(ctx, `TRUNCATE team_awards, question_finds, team_members, teams, questions`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

// setupTestApp seeds one question and one team and wires the real repositories.
func setupTestApp(t *testing.T, db *postgres.DB) (*fiber.App, *usecases.Syncer, string) {
	t.Helper()
	ctx := context.Background()
	questionID := uuid.NewString()

	questionRepo := postgres.NewQuestionRepo(db)
	teamRepo := postgres.NewTeamRepo(db)
	if err := questionRepo.UpsertBatch(ctx, []domain.Question{{
		ID: questionID, Title: "Bridge", Prompt: "Material?", CanonicalAnswer: "Stone",
		Location: bridgeAt,
	}}); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	if err := teamRepo.UpsertBatch(ctx, []domain.Team{
		{ID: "red", Name: "Red", MemberUserIDs: []string{"ana"}},
	}); err != nil {
		t.Fatalf("seed teams: %v", err)
	}

	questions := memory.NewQuestionCache()
	syncer := usecases.NewSyncer(questions, questionRepo, time.Minute)
	if err := syncer.Seed(ctx); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	directory := usecases.NewTeamDirectory(teamRepo, nil, 0, 0)
	selector := usecases.NewTargetSelector()
	deps := &handler.Dependencies{
		Verifier:    usecases.NewAnswerVerifier(questions, directory, selector, nil, 50),
		Targets:     usecases.NewTargetService(questions, directory, selector, 50, 600),
		Leaderboard: usecases.NewLeaderboardService(questions, teamRepo, nil, nil, 100),
		Questions:   questions,
		DB:          db,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, 0)
	return app, syncer, questionID
}

func TestIntegration_Ready(t *testing.T) {
	db := setupTestDB(t)
	app, _, _ := setupTestApp(t, db)

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestIntegration_CheckAnswerPersistsAfterFlush(t *testing.T) {
	db := setupTestDB(t)
	app, syncer, questionID := setupTestApp(t, db)

	body := `{"questionId":"` + questionID + `","answer":"stone","user":"ana","lat":43.2587,"lng":-2.9236}`
	req := httptest.NewRequest("POST", "/api/checkAnswer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := syncer.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	stored, err := postgres.NewQuestionRepo(db).ListWithFinds(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || len(stored[0].FoundBy) != 1 || stored[0].FoundBy[0] != "red" {
		t.Fatalf("expected red to be persisted, got %+v", stored)
	}
}

func TestIntegration_UnknownUserHasNoTeam(t *testing.T) {
	db := setupTestDB(t)
	app, _, questionID := setupTestApp(t, db)

	body := `{"questionId":"` + questionID + `","answer":"stone","user":"nobody","lat":43.2587,"lng":-2.9236}`
	req := httptest.NewRequest("POST", "/api/checkAnswer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	var apiErr handler.APIError
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Result != "no-team" {
		t.Errorf("expected no-team, got %s", apiErr.Result)
	}
}
