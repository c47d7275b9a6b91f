package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "scheduler_session"

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and write JSON.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Login authenticates and sets the session cookie (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.NewBadRequest("username and password are required")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)
	return c.JSON(http.StatusOK, user)
}

// Register creates an account and logs it in (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Timezone:    req.Timezone,
	})
	if err != nil {
		return err
	}

	token, _, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err == nil {
		setSessionCookie(c, token)
	}
	return c.JSON(http.StatusCreated, user)
}

// Logout destroys the session and clears the cookie (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	if token := getSessionToken(c); token != "" {
		// The cookie is cleared regardless.
		_ = h.service.DestroySession(c.Request().Context(), token)
	}
	clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the current session (GET /me).
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, GetSession(c))
}

// UpdateTimezone stores the caller's preferred zone (PUT /me/timezone).
func (h *Handler) UpdateTimezone(c echo.Context) error {
	var req TimezoneRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := h.service.UpdateTimezone(c.Request().Context(), getSessionToken(c), GetUserID(c), req.Timezone); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Cookie helpers ---

// getSessionToken reads the session token from the cookie.
func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly, Secure if behind TLS, and SameSite=Lax.
func setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60, // 30 days in seconds
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
