package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
)

// DefaultSeatPriceCents is charged for seats of a side with no explicit
// price.
const DefaultSeatPriceCents int64 = 5000

// maxSeatsPerMap bounds one generated layout.
const maxSeatsPerMap = 20000

// LayoutReader serves cached seat maps for rendering.
type LayoutReader interface {
	GetLayout(ctx context.Context, seatMapID uint64) (*booking.Layout, error)
}

// StadiumHandler serves /stadiums: reading layouts for everyone signed in
// and creating or repricing seat maps for owners.
type StadiumHandler struct {
	Layouts  LayoutReader
	SeatMaps *repository.SeatMapRepo
	Seats    *repository.SeatRepo
	Tx       *repository.TxManager
	// Cache may be nil.
	Cache booking.LayoutCache
}

type sideReq struct {
	Rows        int `json:"rows" validate:"gte=0,lte=100"`
	SeatsPerRow int `json:"seatsPerRow" validate:"gte=0,lte=200"`
}

type layoutReq struct {
	Top    sideReq `json:"top"`
	Bottom sideReq `json:"bottom"`
	Left   sideReq `json:"left"`
	Right  sideReq `json:"right"`
}

type createSeatMapReq struct {
	Name   string           `json:"name" validate:"required,max=120"`
	Layout layoutReq        `json:"layoutConfig"`
	Prices map[string]int64 `json:"prices" validate:"omitempty,dive,keys,section,endkeys,gt=0"`
}

type updatePriceReq struct {
	PriceCents int64 `json:"price_cents" validate:"gt=0"`
}

func (l layoutReq) model() model.LayoutConfig {
	side := func(s sideReq) model.SideLayout { return model.SideLayout{Rows: s.Rows, SeatsPerRow: s.SeatsPerRow} }
	return model.LayoutConfig{Top: side(l.Top), Bottom: side(l.Bottom), Left: side(l.Left), Right: side(l.Right)}
}

// GetSeatMap handles GET /stadiums/seat-map/:id and returns {seatMap, seats}.
func (h *StadiumHandler) GetSeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	l, err := h.Layouts.GetLayout(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// ListSeatMaps handles GET /stadiums/.
func (h *StadiumHandler) ListSeatMaps(c echo.Context) error {
	maps, err := h.SeatMaps.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]model.SeatMapRef, len(maps))
	for i, m := range maps {
		out[i] = model.SeatMapRef{ID: m.ID, Name: m.Name}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seatMaps": out})
}

// CreateSeatMap handles POST /stadiums/seat-map.  The seat map and all of
// its generated seats are written in one transaction.
func (h *StadiumHandler) CreateSeatMap(c echo.Context) error {
	var req createSeatMapReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	layout := req.Layout.model()
	switch n := layout.Capacity(); {
	case n == 0:
		return respondError(c, badRequest("layoutConfig must describe at least one seat"))
	case n > maxSeatsPerMap:
		return respondError(c, badRequest(fmt.Sprintf("layoutConfig describes %d seats, at most %d allowed", n, maxSeatsPerMap)))
	}

	ctx := c.Request().Context()
	m := &model.SeatMap{Name: strings.TrimSpace(req.Name), Layout: layout}
	var seats []model.Seat
	err := h.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := h.SeatMaps.Create(ctx, m); err != nil {
			return err
		}
		seats = generateSeats(m.ID, layout, req.Prices)
		return h.Seats.CreateBulk(ctx, seats)
	})
	if errors.Is(err, repository.ErrSeatMapNameTaken) {
		return respondError(c, conflict("A seat map with this name already exists"))
	}
	if err != nil {
		return respondError(c, err)
	}
	logging.Ctx(ctx).Info().Uint64("seat_map_id", m.ID).Int("seats", len(seats)).Msg("seat map created")
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "seatMap": m, "seatCount": len(seats)})
}

// UpdateSeatPrice handles PATCH /stadiums/seats/:id/price.  Bookings keep
// the price they were made at.
func (h *StadiumHandler) UpdateSeatPrice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updatePriceReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	seat, err := h.Seats.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSeatNotFound) {
		return respondError(c, notFound("Seat not found"))
	}
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Seats.UpdatePrice(ctx, id, req.PriceCents); err != nil {
		return respondError(c, err)
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, seat.SeatMapID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("seat_map_id", seat.SeatMapID).Msg("layout cache invalidation failed")
		}
	}
	seat.PriceCents = req.PriceCents
	return c.JSON(http.StatusOK, echo.Map{"success": true, "seat": seat})
}

// generateSeats lays out every side row by row.  Labels follow
// "<side>-row<r>-seat<n>" with 1-based row and seat numbers.
func generateSeats(seatMapID uint64, layout model.LayoutConfig, prices map[string]int64) []model.Seat {
	seats := make([]model.Seat, 0, layout.Capacity())
	for _, section := range model.Sections {
		side := layout.Side(section)
		price, ok := prices[string(section)]
		if !ok || price <= 0 {
			price = DefaultSeatPriceCents
		}
		for r := 1; r <= side.Rows; r++ {
			for n := 1; n <= side.SeatsPerRow; n++ {
				seats = append(seats, model.Seat{
					SeatMapID:   seatMapID,
					Section:     section,
					Row:         r,
					Number:      n,
					Label:       fmt.Sprintf("%s-row%d-seat%d", section, r, n),
					PriceCents:  price,
					IsAvailable: true,
				})
			}
		}
	}
	return seats
}
