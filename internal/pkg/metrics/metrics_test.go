package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fakePoolStat struct{ acquired, idle, total int32 }

func (f fakePoolStat) AcquiredConns() int32 { return f.acquired }
func (f fakePoolStat) IdleConns() int32     { return f.idle }
func (f fakePoolStat) TotalConns() int32    { return f.total }

func TestHandler_ExposesGameMetrics(t *testing.T) {
	AnswersTotal.WithLabelValues("correct").Inc()
	UpdateDBPoolMetrics(fakePoolStat{acquired: 2, idle: 3, total: 5})

	app := fiber.New()
	app.Use(Middleware())
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`mirage_game_answers_total{outcome="correct"}`,
		"mirage_db_pool_conns_open 5",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
