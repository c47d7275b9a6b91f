// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance)
// and wires the plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/config"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/middleware"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/presence"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis backs login sessions and presence.
	Redis *redis.Client

	Echo *echo.Echo

	// Presence is created in New so its tracking middleware can be global.
	Presence presence.Store

	// Sweeper evicts stale presence entries. Started by Start, stopped by
	// Shutdown.
	Sweeper *presence.Sweeper
}

// New creates the App, configures global middleware and error handling,
// and prepares the presence sweep. It fails only on an invalid sweep spec.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	store := presence.NewStore(rdb, cfg.Presence.TTL)
	sweeper, err := presence.NewSweeper(store, cfg.Presence.SweepSpec)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Echo:     e,
		Presence: store,
		Sweeper:  sweeper,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	return app, nil
}

// setupMiddleware registers global middleware. The request ID and logger
// run outermost so every response, including recovered panics, is logged.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))
	a.Echo.Use(middleware.CSRF())
	a.Echo.Use(presence.Track(a.Presence))
}

// errorHandler maps errors to responses: JSON by default, the templ error
// page when a browser asks for HTML.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	errType := "internal_error"
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code, errType, message = appErr.Code, appErr.Type, appErr.Message
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		errType = "http_error"
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", middleware.GetRequestID(c)),
		)
	}

	var werr error
	if middleware.WantsHTML(c) {
		werr = middleware.Render(c, code, pages.ErrorPage(code, message))
	} else {
		werr = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"type":    errType,
			"message": message,
		})
	}
	if werr != nil {
		slog.Debug("writing error response failed", slog.Any("error", werr))
	}
}

// defaultErrorMessage returns a message for status codes raised without one.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid."
	case http.StatusUnauthorized:
		return "You need to log in."
	case http.StatusForbidden:
		return "You don't have permission to do that."
	case http.StatusNotFound:
		return "Not found."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The availability store is temporarily unavailable. Please try again."
	default:
		return "An unexpected error occurred."
	}
}

// Start starts the presence sweep and then blocks serving HTTP.
func (a *App) Start() error {
	a.Sweeper.Start()

	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting scheduler server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("canonical_timezone", a.Config.Scheduling.CanonicalTimezone),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the presence sweep.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	a.Sweeper.Stop(ctx)
	return err
}
