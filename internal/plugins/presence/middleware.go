package presence

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// Track touches presence for authenticated requests. It is registered
// globally and touches after the handler chain has run, by which point
// auth.RequireAuth has put the session on the context. Failures are logged
// and never fail the request.
func Track(store Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if name := auth.GetUsername(c); name != "" {
				if terr := store.Touch(c.Request().Context(), name, time.Now()); terr != nil {
					slog.Debug("presence touch failed", slog.String("username", name), slog.Any("error", terr))
				}
			}
			return err
		}
	}
}
