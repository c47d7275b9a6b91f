package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// Recovery turns a handler panic into a logged 500 so one bad request
// cannot take the server down.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
						slog.String("request_id", GetRequestID(c)),
					)
					err = apperror.NewInternal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}
