package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// HeaderTimezone carries the browser's IANA zone on API requests.
const HeaderTimezone = "X-Timezone"

// RequireAuth returns middleware that validates the session cookie and
// injects session data into the request context. Missing or invalid
// sessions get a 401.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return apperror.NewUnauthorized("authentication required")
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				// Invalid or expired session -- clear the stale cookie.
				clearSessionCookie(c)
				return apperror.NewUnauthorized("authentication required")
			}

			c.Set(contextKeySession, session)
			c.Set(contextKeyUserID, session.UserID)
			return next(c)
		}
	}
}

// RequireSiteAdmin rejects non-admins. Must run after RequireAuth.
func RequireSiteAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsSiteAdmin(c) {
				return apperror.NewForbidden("site administrator access required")
			}
			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// GetUsername returns the authenticated username, or "".
func GetUsername(c echo.Context) string {
	if s := GetSession(c); s != nil {
		return s.Username
	}
	return ""
}

// IsSiteAdmin reports whether the authenticated user is a site admin.
func IsSiteAdmin(c echo.Context) bool {
	s := GetSession(c)
	return s != nil && s.IsAdmin
}

// RequestTimezone returns the zone name a request wants its hours shown in:
// the tz query parameter, then the X-Timezone header, then the user's stored
// preference. An empty result means canonical.
func RequestTimezone(c echo.Context) string {
	if tz := strings.TrimSpace(c.QueryParam("tz")); tz != "" {
		return tz
	}
	if tz := strings.TrimSpace(c.Request().Header.Get(HeaderTimezone)); tz != "" {
		return tz
	}
	if s := GetSession(c); s != nil {
		return s.Timezone
	}
	return ""
}

// SetSession installs a session on the context. Intended for tests of
// handlers that sit behind RequireAuth.
func SetSession(c echo.Context, s *Session) {
	c.Set(contextKeySession, s)
	c.Set(contextKeyUserID, s.UserID)
}
