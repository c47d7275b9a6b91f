package presence

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// Handler serves the presence listing.
type Handler struct {
	store Store
}

// NewHandler creates a new presence handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List returns users active within the presence window.
// GET /admin/presence
func (h *Handler) List(c echo.Context) error {
	active, err := h.store.Active(c.Request().Context(), time.Now())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"active": active,
		"count":  len(active),
	})
}
