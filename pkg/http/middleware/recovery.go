package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a 500 in the API envelope. Nothing is
// written when the handler already committed a response.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				l.Error("http handler panic",
					applogger.String("method", c.Request().Method),
					applogger.String("route", c.Path()),
					applogger.String("panic", fmt.Sprint(r)),
					applogger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
					"data":    "Something went wrong",
				})
			}()
			return next(c)
		}
	}
}
