package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/mirage-hunt/mirage/internal/adapters/http"
	"github.com/mirage-hunt/mirage/internal/adapters/memory"
	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
	"github.com/mirage-hunt/mirage/internal/pkg/logging"
)

const (
	bridgeID = "7d3f8c2a-4b1e-4f6a-9c0d-1e2f3a4b5c6d"
	clockID  = "0b9a8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
)

var (
	bridgeAt = domain.GeoPoint{Lat: 43.2587, Lng: -2.9236}
	clockAt  = domain.GeoPoint{Lat: 43.2569, Lng: -2.9253}
)

func north(p domain.GeoPoint, meters float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + meters/(6371000.0*math.Pi/180), Lng: p.Lng}
}

// ---- Mock repositories ----

type mockTeamRepo struct {
	teamOfFn func(ctx context.Context, userID string) (*domain.Team, error)
	listFn   func(ctx context.Context) ([]domain.Team, error)
}

func (m *mockTeamRepo) TeamOfUser(ctx context.Context, userID string) (*domain.Team, error) {
	if m.teamOfFn != nil {
		return m.teamOfFn(ctx, userID)
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

// rosterRepo resolves users from a fixed roster.
func rosterRepo(teams ...domain.Team) *mockTeamRepo {
	byUser := make(map[string]*domain.Team)
	for i := range teams {
		for _, u := range teams[i].MemberUserIDs {
			byUser[u] = &teams[i]
		}
	}
	return &mockTeamRepo{
		teamOfFn: func(ctx context.Context, userID string) (*domain.Team, error) {
			if t, ok := byUser[userID]; ok {
				return t, nil
			}
			return nil, domain.ErrNoTeam
		},
		listFn: func(ctx context.Context) ([]domain.Team, error) { return teams, nil },
	}
}

var (
	red  = domain.Team{ID: "red", Name: "Red", MemberUserIDs: []string{"ana", "ben"}}
	blue = domain.Team{ID: "blue", Name: "Blue", MemberUserIDs: []string{"cai"}}
)

// ---- Test helpers ----

type game struct {
	app       *fiber.App
	questions *memory.QuestionCache
	logs      *logging.RingBuffer
}

func newGame(t *testing.T, teams *mockTeamRepo) *game {
	t.Helper()
	return newLimitedGame(t, teams, 0)
}

func newLimitedGame(t *testing.T, teams *mockTeamRepo, rateLimit int) *game {
	t.Helper()
	questions := memory.NewQuestionCache()
	err := questions.Load([]domain.Question{
		{ID: bridgeID, Title: "Bridge", Prompt: "What is the bridge made of?", CanonicalAnswer: "Stone", Location: bridgeAt},
		{ID: clockID, Title: "Clock", Prompt: "What colour is the clock?", CanonicalAnswer: "Green", Location: clockAt},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	directory := usecases.NewTeamDirectory(teams, nil, 0, 0)
	selector := usecases.NewTargetSelector()
	logs := logging.NewRingBuffer(50)

	deps := &handler.Dependencies{
		Verifier:    usecases.NewAnswerVerifier(questions, directory, selector, nil, 50),
		Targets:     usecases.NewTargetService(questions, directory, selector, 50, 600),
		Leaderboard: usecases.NewLeaderboardService(questions, teams, nil, nil, 100),
		Questions:   questions,
		Logs:        logs,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps, rateLimit)
	return &game{app: app, questions: questions, logs: logs}
}

func (g *game) post(t *testing.T, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest("POST", path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

func (g *game) get(t *testing.T, path string) (int, []byte, map[string][]string) {
	t.Helper()
	resp, err := g.app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body), resp.Header
}

func answer(questionID, text, user string, at domain.GeoPoint) map[string]any {
	return map[string]any{
		"questionId": questionID,
		"answer":     text,
		"user":       user,
		"lat":        at.Lat,
		"lng":        at.Lng,
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return apiErr
}

func foundBy(t *testing.T, g *game, id string) []string {
	t.Helper()
	q, err := g.questions.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return q.FoundBy
}

// ---- checkAnswer ----

func TestCheckAnswer_CorrectInRange(t *testing.T) {
	g := newGame(t, rosterRepo(red, blue))

	status, body := g.post(t, "/api/checkAnswer", answer(bridgeID, "  stone ", "ana", north(bridgeAt, 10)))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res struct {
		QuestionID string          `json:"questionId"`
		Question   domain.Question `json:"question"`
		NextTarget *domain.Target  `json:"nextTarget"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.QuestionID != bridgeID {
		t.Errorf("expected questionId %s, got %s", bridgeID, res.QuestionID)
	}
	if len(res.Question.FoundBy) != 1 || res.Question.FoundBy[0] != "red" {
		t.Errorf("expected foundBy [red], got %v", res.Question.FoundBy)
	}
	if res.NextTarget == nil || res.NextTarget.ID != clockID {
		t.Errorf("expected the unsolved clock as next target, got %+v", res.NextTarget)
	}
	if strings.Contains(string(body), "Stone") {
		t.Error("response leaks the canonical answer")
	}

	// A teammate answering again changes nothing.
	status, _ = g.post(t, "/api/checkAnswer", answer(bridgeID, "stone", "ben", bridgeAt))
	if status != 200 {
		t.Fatalf("teammate: expected 200, got %d", status)
	}
	if got := foundBy(t, g, bridgeID); len(got) != 1 {
		t.Errorf("expected foundBy size 1 after teammate, got %v", got)
	}
}

func TestCheckAnswer_TooFar(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body := g.post(t, "/api/checkAnswer", answer(bridgeID, "stone", "ana", north(bridgeAt, 200)))
	if status != handler.StatusWrongAnswer {
		t.Fatalf("expected 467, got %d", status)
	}
	apiErr := decodeError(t, body)
	if apiErr.Result != "wrong-answer" || apiErr.Reason != "too-far" {
		t.Errorf("expected wrong-answer/too-far, got %s/%s", apiErr.Result, apiErr.Reason)
	}
	if got := foundBy(t, g, bridgeID); len(got) != 0 {
		t.Errorf("expected no mutation, got %v", got)
	}
}

func TestCheckAnswer_WrongText(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	for _, at := range []domain.GeoPoint{bridgeAt, north(bridgeAt, 5000)} {
		status, body := g.post(t, "/api/checkAnswer", answer(bridgeID, "wood", "ana", at))
		if status != handler.StatusWrongAnswer {
			t.Fatalf("expected 467, got %d", status)
		}
		if apiErr := decodeError(t, body); apiErr.Reason != "wrong-answer" {
			t.Errorf("expected reason wrong-answer, got %s", apiErr.Reason)
		}
	}
	if got := foundBy(t, g, bridgeID); len(got) != 0 {
		t.Errorf("expected no mutation, got %v", got)
	}
}

func TestCheckAnswer_UnknownQuestion(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body := g.post(t, "/api/checkAnswer", answer("11111111-2222-4333-8444-555555555555", "stone", "ana", bridgeAt))
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Result != "not-found" {
		t.Errorf("expected not-found, got %s", apiErr.Result)
	}
}

func TestCheckAnswer_Malformed(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	tests := []struct {
		name string
		body any
	}{
		{"bad question id", answer("not-a-uuid", "stone", "ana", bridgeAt)},
		{"missing user", answer(bridgeID, "stone", "", bridgeAt)},
		{"missing coordinates", map[string]any{"questionId": bridgeID, "answer": "stone", "user": "ana"}},
		{"latitude out of range", answer(bridgeID, "stone", "ana", domain.GeoPoint{Lat: 91, Lng: 0})},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := g.post(t, "/api/checkAnswer", tt.body)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, body)
			}
			if apiErr := decodeError(t, body); apiErr.Result != "bad-request" {
				t.Errorf("expected bad-request, got %s", apiErr.Result)
			}
		})
	}
	if got := foundBy(t, g, bridgeID); len(got) != 0 {
		t.Errorf("expected no mutation, got %v", got)
	}
}

func TestCheckAnswer_NoTeam(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body := g.post(t, "/api/checkAnswer", answer(bridgeID, "stone", "stranger", bridgeAt))
	if status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Result != "no-team" {
		t.Errorf("expected no-team, got %s", apiErr.Result)
	}
	if got := foundBy(t, g, bridgeID); len(got) != 0 {
		t.Errorf("expected no mutation, got %v", got)
	}
}

func TestCheckAnswer_TeamDirectoryDown(t *testing.T) {
	g := newGame(t, &mockTeamRepo{
		teamOfFn: func(ctx context.Context, userID string) (*domain.Team, error) {
			return nil, errors.New("connection refused")
		},
	})

	status, body := g.post(t, "/api/checkAnswer", answer(bridgeID, "stone", "ana", bridgeAt))
	if status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}
	if apiErr := decodeError(t, body); apiErr.Result != "internal-error" {
		t.Errorf("expected internal-error, got %s", apiErr.Result)
	}
	if got := foundBy(t, g, bridgeID); len(got) != 0 {
		t.Errorf("expected no mutation, got %v", got)
	}
}

// ---- getTarget / nearby ----

func TestGetTarget_LeastFound(t *testing.T) {
	g := newGame(t, rosterRepo(red, blue))
	if _, _, err := g.questions.RecordFound(bridgeID, "blue"); err != nil {
		t.Fatal(err)
	}

	for range 10 {
		status, body := g.post(t, "/api/getTarget", map[string]any{"lat": bridgeAt.Lat, "lng": bridgeAt.Lng, "user": "ana"})
		if status != 200 {
			t.Fatalf("expected 200, got %d: %s", status, body)
		}
		var res struct {
			Question domain.Target `json:"question"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			t.Fatal(err)
		}
		if res.Question.ID != clockID {
			t.Fatalf("expected least-found clock, got %s", res.Question.ID)
		}
		if res.Question.DistanceMeters <= 0 {
			t.Errorf("expected a positive distance, got %f", res.Question.DistanceMeters)
		}
	}
}

func TestGetTarget_FallbackWhenAllSolved(t *testing.T) {
	g := newGame(t, rosterRepo(red))
	for _, id := range []string{bridgeID, clockID} {
		if _, _, err := g.questions.RecordFound(id, "red"); err != nil {
			t.Fatal(err)
		}
	}

	status, body := g.post(t, "/api/getTarget", map[string]any{"lat": bridgeAt.Lat, "lng": bridgeAt.Lng, "user": "ana"})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var res struct {
		Question domain.Target `json:"question"`
	}
	json.Unmarshal(body, &res)
	if !res.Question.Fallback {
		t.Error("expected fallback to be set")
	}
}

func TestGetTarget_BadRequest(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, _ := g.post(t, "/api/getTarget", map[string]any{"lat": 43.2, "user": "ana"})
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	status, _ = g.post(t, "/api/getTarget", map[string]any{"lat": 43.2, "lng": -2.9})
	if status != 400 {
		t.Fatalf("expected 400 without user, got %d", status)
	}
}

func TestNearby_ExcludesSolvedAndSortsByDistance(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body := g.post(t, "/api/nearby", map[string]any{"lat": clockAt.Lat, "lng": clockAt.Lng, "user": "ana"})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var res struct {
		Questions []domain.Target `json:"questions"`
	}
	json.Unmarshal(body, &res)
	if len(res.Questions) != 2 || res.Questions[0].ID != clockID {
		t.Fatalf("expected clock first of 2, got %+v", res.Questions)
	}

	g.questions.RecordFound(clockID, "red")
	_, body = g.post(t, "/api/nearby", map[string]any{"lat": clockAt.Lat, "lng": clockAt.Lng, "user": "ana"})
	json.Unmarshal(body, &res)
	if len(res.Questions) != 1 || res.Questions[0].ID != bridgeID {
		t.Errorf("expected only the bridge, got %+v", res.Questions)
	}
}

// ---- read endpoints ----

func TestListQuestions_HidesAnswers(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body, header := g.get(t, "/api/questions")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if strings.Contains(string(body), "Green") {
		t.Error("question list leaks an answer")
	}
	if header["Etag"] == nil {
		t.Error("expected an ETag header")
	}
}

func TestLeaderboard_RanksAndLinks(t *testing.T) {
	teams := []domain.Team{red, blue, {ID: "green", Name: "Green"}}
	g := newGame(t, rosterRepo(teams...))
	g.questions.RecordFound(bridgeID, "blue")
	g.questions.RecordFound(clockID, "blue")
	g.questions.RecordFound(bridgeID, "red")

	status, body, header := g.get(t, "/api/leaderboard?limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var res struct {
		Data       []domain.Standing  `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Pagination.Total != 3 || len(res.Data) != 2 {
		t.Fatalf("expected 2 of 3 rows, got %d of %d", len(res.Data), res.Pagination.Total)
	}
	if res.Data[0].TeamID != "blue" || res.Data[0].Points != 200 || res.Data[0].Rank != 1 {
		t.Errorf("unexpected leader %+v", res.Data[0])
	}
	link := strings.Join(header["Link"], ",")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, "offset=2") {
		t.Errorf("expected a next link to offset 2, got %q", link)
	}
}

func TestLeaderboard_TeamStoreDown(t *testing.T) {
	g := newGame(t, &mockTeamRepo{
		listFn: func(ctx context.Context) ([]domain.Team, error) { return nil, errors.New("db down") },
	})

	status, _, _ := g.get(t, "/api/leaderboard")
	if status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}
}

func TestLogs_Filter(t *testing.T) {
	g := newGame(t, rosterRepo(red))
	for i := range 5 {
		fmt.Fprintf(g.logs, "level=INFO msg=\"answer checked\" n=%d\n", i)
	}
	fmt.Fprintln(g.logs, "level=WARN msg=\"slow lookup\"")

	status, body, _ := g.get(t, "/logs?q=ANSWER&limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var lines []string
	if err := json.Unmarshal(body, &lines); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || !strings.Contains(lines[1], "n=4") {
		t.Errorf("expected the two newest answer lines, got %v", lines)
	}
}

func TestRoot_Online(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body, _ := g.get(t, "/")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"online"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHealth_CountsQuestions(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	_, body, _ := g.get(t, "/health")
	var res struct {
		Status    string `json:"status"`
		Questions int    `json:"questions"`
	}
	json.Unmarshal(body, &res)
	if res.Status != "healthy" || res.Questions != 2 {
		t.Errorf("unexpected health %+v", res)
	}
}

func TestReady_WithoutDatabase(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, _, _ := g.get(t, "/ready")
	if status != 503 {
		t.Fatalf("expected 503 without a database, got %d", status)
	}
}

func TestGraphQL_Questions(t *testing.T) {
	g := newGame(t, rosterRepo(red))
	g.questions.RecordFound(clockID, "red")

	status, body := g.post(t, "/graphql", map[string]any{
		"query": `{ questions { id title foundCount location { lat } } }`,
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var res struct {
		Data struct {
			Questions []struct {
				ID         string `json:"id"`
				FoundCount int    `json:"foundCount"`
			} `json:"questions"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Data.Questions) != 2 || res.Data.Questions[1].FoundCount != 1 {
		t.Errorf("unexpected questions %+v", res.Data.Questions)
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, _ := g.post(t, "/graphql", map[string]any{"query": ""})
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestDocs_ServesEmbeddedDocument(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, body, _ := g.get(t, "/docs/openapi.yaml")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "/api/checkAnswer") {
		t.Error("document does not describe checkAnswer")
	}
}

func TestWebSocket_NotMountedWithoutNATS(t *testing.T) {
	g := newGame(t, rosterRepo(red))

	status, _, _ := g.get(t, "/ws")
	if status != 404 {
		t.Fatalf("expected 404 without a NATS connection, got %d", status)
	}
}

func TestRateLimit_ZeroDisablesLimiting(t *testing.T) {
	g := newLimitedGame(t, rosterRepo(red), 0)
	for i := 0; i < 20; i++ {
		if status, _, _ := g.get(t, "/api/questions"); status != fiber.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, status)
		}
	}
}

func TestRateLimit_ThrottlesAfterBudget(t *testing.T) {
	g := newLimitedGame(t, rosterRepo(red), 2)
	for i := 0; i < 2; i++ {
		if status, _, _ := g.get(t, "/api/questions"); status != fiber.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, status)
		}
	}
	if status, _, _ := g.get(t, "/api/questions"); status != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", status)
	}
	// Health checks stay outside the budget.
	if status, _, _ := g.get(t, "/health"); status != fiber.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
}
