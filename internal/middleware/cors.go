package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API, e.g. a separately
	// hosted calendar front end. "*" allows any origin without credentials.
	AllowedOrigins []string

	// AllowCredentials lets the browser send the session cookie.
	AllowCredentials bool
}

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}, ", ")

	// X-Timezone selects the viewer's zone; X-CSRF-Token carries the
	// double-submit token.
	corsHeaders = strings.Join([]string{
		echo.HeaderContentType, echo.HeaderXRequestID, "X-Timezone", HeaderCSRFToken,
	}, ", ")
)

// CORS answers preflights and sets Access-Control headers for allowed
// origins. Same-origin requests pass through untouched.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimRight(o, "/")] = true
	}

	if allowAll && cfg.AllowCredentials {
		slog.Warn("CORS: wildcard origin cannot be combined with credentials; credentials disabled")
		cfg.AllowCredentials = false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			origin := req.Header.Get(echo.HeaderOrigin)
			if origin == "" || !(allowAll || origins[origin]) {
				return next(c)
			}

			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			if cfg.AllowCredentials {
				h.Set(echo.HeaderAccessControlAllowCredentials, "true")
			}

			if req.Method == http.MethodOptions {
				h.Set(echo.HeaderAccessControlAllowMethods, corsMethods)
				h.Set(echo.HeaderAccessControlAllowHeaders, corsHeaders)
				h.Set(echo.HeaderAccessControlMaxAge, "3600")
				return c.NoContent(http.StatusNoContent)
			}

			h.Set(echo.HeaderAccessControlExposeHeaders, echo.HeaderXRequestID+", Content-Disposition")
			return next(c)
		}
	}
}
