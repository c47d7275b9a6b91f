package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// fixedWindow counts requests from one client in the current window.
type fixedWindow struct {
	count int
	start time.Time
}

// limiter is a per-IP fixed-window counter.
type limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*fixedWindow
	swept   time.Time
}

// allow records a request and reports whether it is within the limit, and
// if not, how long until the window resets.
func (l *limiter) allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop idle clients at most once per window.
	if now.Sub(l.swept) > l.window {
		for k, w := range l.clients {
			if now.Sub(w.start) > l.window {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	w, ok := l.clients[ip]
	if !ok || now.Sub(w.start) > l.window {
		l.clients[ip] = &fixedWindow{count: 1, start: now}
		return true, 0
	}
	w.count++
	if w.count > l.max {
		return false, w.start.Add(l.window).Sub(now)
	}
	return true, 0
}

// RateLimit limits each client IP to maxRequests per window. Excess
// requests get 429 with a Retry-After header.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := &limiter{max: maxRequests, window: window, clients: make(map[string]*fixedWindow)}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retry := l.allow(c.RealIP(), time.Now())
			if !ok {
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
