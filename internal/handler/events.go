package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/events"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
)

// EventsSource lists upcoming games per league.
type EventsSource interface {
	FetchSports(ctx context.Context) (*events.SportsEvents, error)
}

type EventsHandler struct {
	Source EventsSource
}

// ListEvents handles GET /events/ and returns {nba, mlb, nfl}.
func (h *EventsHandler) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	evs, err := h.Source.FetchSports(ctx)
	switch {
	case errors.Is(err, events.ErrNotConfigured):
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": err.Error()})
	case errors.Is(err, events.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "message": err.Error()})
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Msg("events provider request failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "message": "Failed to fetch events"})
	}
	return c.JSON(http.StatusOK, evs)
}
