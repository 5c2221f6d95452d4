package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
)

const handlerTimeout = 10 * time.Second

// SetupRoutes registers the game API, the operational endpoints, GraphQL and
// the live feed. rateLimit is the per-IP request budget per minute; zero
// disables limiting.
func SetupRoutes(app *fiber.App, deps *Dependencies, rateLimit int) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if rateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        rateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				// Health checks must not be throttled
				switch c.Path() {
				case "/", "/health", "/ready", "/metrics":
					return true
				}
				return false
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate-limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	app.Use(CachingMiddleware())

	app.Get("/", RootHandler())
	app.Get("/health", HealthHandler(deps))
	app.Get("/ready", ReadyHandler(deps))
	app.Get("/logs", LogsHandler(deps))

	api := app.Group("/api")
	api.Post("/checkAnswer", timeout.NewWithContext(CheckAnswerHandler(deps), handlerTimeout))
	api.Post("/getTarget", timeout.NewWithContext(GetTargetHandler(deps), handlerTimeout))
	api.Post("/nearby", timeout.NewWithContext(NearbyHandler(deps), handlerTimeout))
	api.Get("/questions", ListQuestionsHandler(deps))
	api.Get("/leaderboard", timeout.NewWithContext(LeaderboardHandler(deps), handlerTimeout))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), handlerTimeout))

	SetupDocs(app)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
