package middleware

import (
	"net/http"
	"time"

	applogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. Server errors are logged at
// WARN, everything else at DEBUG. Paths in skip (health checks, scrapes)
// are not logged.
func RequestLogging(l *applogger.Logger, skip ...string) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		if p != "" {
			skipped[p] = true
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipped[c.Request().URL.Path] {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			req, res := c.Request(), c.Response()
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Duration("duration", time.Since(start)),
			}
			if res.Status >= http.StatusInternalServerError {
				if err != nil {
					fields = append(fields, applogger.Error(err))
				}
				l.Warn("http request failed", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return err
		}
	}
}
