package http

import "github.com/gofiber/fiber/v2"

// StatusWrongAnswer signals an expected game failure (wrong text or too far)
// as distinct from client or server errors.
const StatusWrongAnswer = 467

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Result    string `json:"result"`            // machine-readable: bad-request, not-found, wrong-answer, ...
	Reason    string `json:"reason,omitempty"`  // wrong-answer or too-far on 467
	Message   string `json:"message,omitempty"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

func newError(c *fiber.Ctx, status int, result, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Result:    result,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad-request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not-found", msg)
}

func errNoTeam(c *fiber.Ctx) error {
	return newError(c, fiber.StatusForbidden, "no-team", "user does not belong to a team")
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal-error", msg)
}

// errWrongAnswer returns the 467 game outcome. reason is the outcome name.
func errWrongAnswer(c *fiber.Ctx, reason string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(StatusWrongAnswer).JSON(APIError{
		Status:    StatusWrongAnswer,
		Result:    "wrong-answer",
		Reason:    reason,
		RequestID: reqID,
	})
}
