package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Limiter grants one request per call for the given key.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the caller's IP runs out of
// tokens. Paths in skip are never limited.
func RateLimit(l Limiter, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || skipped[c.Request().URL.Path] {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
