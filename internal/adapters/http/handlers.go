package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mirage-hunt/mirage/internal/core/domain"
)

type positionRequest struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	User string   `json:"user"`
}

// position validates the coordinates; both must be present and in range.
func (r positionRequest) position() (domain.GeoPoint, bool) {
	if r.Lat == nil || r.Lng == nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: *r.Lat, Lng: *r.Lng}
	return p, p.Valid()
}

type checkAnswerRequest struct {
	positionRequest
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type checkAnswerResponse struct {
	QuestionID string           `json:"questionId"`
	Question   *domain.Question `json:"question"`
	NextTarget *domain.Target   `json:"nextTarget"`
}

// CheckAnswerHandler verifies a submitted answer and credits the team.
func CheckAnswerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req checkAnswerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		pos, ok := req.position()
		if !ok {
			return errBadRequest(c, "lat and lng are required and must be valid coordinates")
		}
		if req.User == "" {
			return errBadRequest(c, "user is required")
		}

		ctx := c.UserContext()
		res, err := deps.Verifier.CheckAnswer(ctx, domain.Submission{
			QuestionID: req.QuestionID,
			Answer:     req.Answer,
			Position:   pos,
			UserID:     req.User,
		})
		if err != nil {
			LoggerFromCtx(ctx).Error("check answer failed",
				"question", req.QuestionID,
				"user", req.User,
				"error", err,
			)
			return errInternal(c, "could not check answer")
		}

		switch res.Outcome {
		case domain.OutcomeCorrect:
			return c.JSON(checkAnswerResponse{
				QuestionID: res.Question.ID,
				Question:   res.Question,
				NextTarget: res.Next,
			})
		case domain.OutcomeWrongAnswer, domain.OutcomeTooFar:
			return errWrongAnswer(c, res.Outcome.String())
		case domain.OutcomeNotFound:
			return errNotFound(c, "question not found")
		case domain.OutcomeNoTeam:
			return errNoTeam(c)
		default:
			return errBadRequest(c, "malformed question id")
		}
	}
}

// GetTargetHandler returns the next question the player should look for.
func GetTargetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		pos, ok := req.position()
		if !ok {
			return errBadRequest(c, "lat and lng are required and must be valid coordinates")
		}
		if req.User == "" {
			return errBadRequest(c, "user is required")
		}

		target, err := deps.Targets.GetTarget(c.UserContext(), pos, req.User)
		switch {
		case errors.Is(err, domain.ErrNoCandidates):
			return errNotFound(c, "no questions available")
		case errors.Is(err, domain.ErrMalformedRequest):
			return errBadRequest(c, err.Error())
		case err != nil:
			LoggerFromCtx(c.UserContext()).Error("get target failed", "user", req.User, "error", err)
			return errInternal(c, "could not select target")
		}

		return c.JSON(fiber.Map{"question": target})
	}
}

// NearbyHandler lists unsolved questions around the player, closest first.
func NearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		pos, ok := req.position()
		if !ok {
			return errBadRequest(c, "lat and lng are required and must be valid coordinates")
		}

		questions, err := deps.Targets.Nearby(c.UserContext(), pos, req.User)
		if err != nil {
			return errInternal(c, "could not list nearby questions")
		}
		return c.JSON(fiber.Map{"questions": questions})
	}
}

// ListQuestionsHandler returns every question without answers.
func ListQuestionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"questions": deps.Questions.All()})
	}
}

// LeaderboardHandler returns a page of team standings.
func LeaderboardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := parsePagination(c, 20, 100)

		rows, total, err := deps.Leaderboard.Page(c.UserContext(), pg.Offset, pg.Limit)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("leaderboard failed", "error", err)
			return errInternal(c, "could not compute leaderboard")
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: rows, Pagination: pg})
	}
}

// LogsHandler returns recent log lines, optionally filtered by q.
func LogsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Logs == nil {
			return c.JSON([]string{})
		}
		limit := c.QueryInt("limit", 200)
		if limit < 0 {
			limit = 200
		}
		return c.JSON(deps.Logs.Lines(c.Query("q"), limit))
	}
}
