package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses and answers
// conditional requests with 304 using a weak ETag of the body.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet {
			return nil
		}

		if c.Get(fiber.HeaderCacheControl) == "" {
			if cc := cacheControlFor(c.Path()); cc != "" {
				c.Set(fiber.HeaderCacheControl, cc)
			}
		}

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		h := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(h[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if etagMatches(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/" || path == "/health" || path == "/ready" || path == "/metrics" || path == "/logs":
		return "no-cache"
	case path == "/api/leaderboard":
		return "public, max-age=5"
	case path == "/api/questions":
		return "public, max-age=10"
	case strings.HasPrefix(path, "/docs"):
		return "public, max-age=3600"
	}
	return ""
}

// etagMatches reports whether an If-None-Match header lists etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
