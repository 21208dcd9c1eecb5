package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/events"
	"github.com/iliyamo/sportshub-ticketing/internal/middleware"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/payment"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
)

type stubBookings struct {
	reserveReq booking.ReserveRequest
	reserve    func(booking.ReserveRequest) (*model.Booking, error)
	cancel     func(bookingID, userID uint64) (*model.Booking, error)
	list       []model.BookingDetail
}

func (s *stubBookings) ReserveSeats(_ context.Context, req booking.ReserveRequest) (*model.Booking, error) {
	s.reserveReq = req
	return s.reserve(req)
}

func (s *stubBookings) CancelBooking(_ context.Context, bookingID, userID uint64) (*model.Booking, error) {
	return s.cancel(bookingID, userID)
}

func (s *stubBookings) ListBookings(context.Context, uint64) ([]model.BookingDetail, error) {
	return s.list, nil
}

// call runs h with the caller id already set, as JWTAuth would.
func call(h echo.HandlerFunc, method, target, body string, userID uint64) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set(middleware.ContextUserID, userID)
	}
	_ = h(c)
	return rec
}

func TestBookSeatsSuccess(t *testing.T) {
	svc := &stubBookings{reserve: func(req booking.ReserveRequest) (*model.Booking, error) {
		return &model.Booking{ID: 10, SeatMapID: req.SeatMapID, UserID: req.UserID, TotalAmountCents: 5000, Status: model.BookingBooked}, nil
	}}
	h := NewBookingHandler(svc)

	rec := call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":3,"seatIds":[7,8]}`, 42)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"total_amount_cents":5000`)
	assert.Equal(t, booking.ReserveRequest{SeatMapID: 3, SeatIDs: []uint64{7, 8}, UserID: 42}, svc.reserveReq)
}

func TestBookSeatsErrorStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"unavailable":  {&booking.Error{Kind: booking.KindSeatUnavailable, Message: "One or more seats are unavailable", SeatIDs: []uint64{8}}, http.StatusBadRequest},
		"no seat map":  {&booking.Error{Kind: booking.KindNotFound, Message: "Seat map not found"}, http.StatusNotFound},
		"storage down": {errors.New("connection refused"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewBookingHandler(&stubBookings{reserve: func(booking.ReserveRequest) (*model.Booking, error) { return nil, tc.err }})
			rec := call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":3,"seatIds":[8]}`, 42)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestBookSeatsRejectsBadInput(t *testing.T) {
	h := NewBookingHandler(&stubBookings{reserve: func(booking.ReserveRequest) (*model.Booking, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}})

	rec := call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":3,"seatIds":[]}`, 42)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "seatIds")

	rec = call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":`, 42)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ids := make([]string, maxSeatsPerBooking+1)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	rec = call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":3,"seatIds":[`+strings.Join(ids, ",")+`]}`, 42)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "seatIds")

	rec = call(h.BookSeats, http.MethodPost, "/booking/book-seats", `{"eventId":3,"seatIds":[1]}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelBookingResponses(t *testing.T) {
	h := NewBookingHandler(&stubBookings{cancel: func(id, user uint64) (*model.Booking, error) {
		switch id {
		case 1:
			return &model.Booking{ID: 1, UserID: user, Status: model.BookingCancelled}, nil
		case 2:
			return nil, &booking.Error{Kind: booking.KindInvalidState, Message: "Booking is already cancelled"}
		case 3:
			return nil, &booking.Error{Kind: booking.KindForbidden, Message: "Booking belongs to another user"}
		}
		return nil, &booking.Error{Kind: booking.KindNotFound, Message: "Booking not found"}
	}})

	rec := call(h.CancelBooking, http.MethodPost, "/booking/cancel-booking", `{"bookingId":1}`, 5)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Booking cancelled successfully"`)

	for id, status := range map[string]int{"2": http.StatusConflict, "3": http.StatusForbidden, "4": http.StatusNotFound} {
		rec := call(h.CancelBooking, http.MethodPost, "/booking/cancel-booking", `{"bookingId":`+id+`}`, 5)
		assert.Equal(t, status, rec.Code, id)
		assert.Contains(t, rec.Body.String(), `"success":false`, id)
		assert.Contains(t, rec.Body.String(), `"message"`, id)
	}
}

func TestGetBookingsEmptyList(t *testing.T) {
	h := NewBookingHandler(&stubBookings{})
	rec := call(h.GetBookings, http.MethodGet, "/booking/", "", 5)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"bookings":[]}`, rec.Body.String())
}

func TestGenerateSeats(t *testing.T) {
	layout := model.LayoutConfig{
		Top:  model.SideLayout{Rows: 2, SeatsPerRow: 3},
		Left: model.SideLayout{Rows: 1, SeatsPerRow: 2},
	}
	seats := generateSeats(9, layout, map[string]int64{"left": 7500})
	require.Len(t, seats, 8)

	assert.Equal(t, "top-row1-seat1", seats[0].Label)
	assert.Equal(t, "top-row2-seat3", seats[5].Label)
	assert.Equal(t, DefaultSeatPriceCents, seats[5].PriceCents)
	assert.Equal(t, "left-row1-seat2", seats[7].Label)
	assert.Equal(t, int64(7500), seats[7].PriceCents)
	for _, s := range seats {
		assert.Equal(t, uint64(9), s.SeatMapID)
		assert.True(t, s.IsAvailable)
	}
}

type stubLayouts struct{ err error }

func (s stubLayouts) GetLayout(_ context.Context, id uint64) (*booking.Layout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &booking.Layout{
		SeatMap: model.SeatMap{ID: id, Name: "Arena A"},
		Seats:   []model.Seat{{ID: 1, SeatMapID: id, Label: "top-row1-seat1", PriceCents: 5000, IsAvailable: true}},
	}, nil
}

func TestGetSeatMap(t *testing.T) {
	e := echo.New()
	h := &StadiumHandler{Layouts: stubLayouts{}}
	e.GET("/stadiums/seat-map/:id", h.GetSeatMap)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/4", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"seatMap":{"id":4,"name":"Arena A"`)
	assert.Contains(t, rec.Body.String(), `"label":"top-row1-seat1"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.Layouts = stubLayouts{err: &booking.Error{Kind: booking.KindNotFound, Message: "Seat map not found"}}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stadiums/seat-map/5", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubEvents struct {
	out *events.SportsEvents
	err error
}

func (s stubEvents) FetchSports(context.Context) (*events.SportsEvents, error) { return s.out, s.err }

func TestListEvents(t *testing.T) {
	h := &EventsHandler{Source: stubEvents{out: &events.SportsEvents{NBA: []events.Event{{ID: "e1", Name: "Lakers vs Celtics"}}}}}
	rec := call(h.ListEvents, http.MethodGet, "/events/", "", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lakers vs Celtics")

	h.Source = stubEvents{err: events.ErrNotConfigured}
	rec = call(h.ListEvents, http.MethodGet, "/events/", "", 1)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "events provider not configured")

	h.Source = stubEvents{err: events.ErrUnavailable}
	rec = call(h.ListEvents, http.MethodGet, "/events/", "", 1)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubProcessor struct{ err error }

func (s stubProcessor) Process(_ context.Context, userID uint64, r payment.Request) (*model.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Payment{
		ID: "PAY-ABCDEF123", UserID: userID, AmountCents: r.AmountCents, CardLast4: "1234",
		CardName: r.CardName, ExpiryDate: r.ExpiryDate, Status: "completed", CreatedAt: time.Now(),
	}, nil
}

func TestProcessPayment(t *testing.T) {
	body := `{"amount_cents":10000,"card_number":"4111 1111 1111 1234","card_name":"Sam Fan","expiry_date":"12/99","cvv":"123"}`
	h := &PaymentHandler{Processor: stubProcessor{}}

	rec := call(h.Process, http.MethodPost, "/payments/process", body, 3)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"card_number":"**** **** **** 1234"`)
	assert.Contains(t, rec.Body.String(), `"id":"PAY-ABCDEF123"`)

	rec = call(h.Process, http.MethodPost, "/payments/process", `{"amount_cents":10000,"card_number":"4111","card_name":"x","expiry_date":"13/30","cvv":"12"}`, 3)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	h.Processor = stubProcessor{err: &payment.InvalidError{Reason: "Card has expired"}}
	rec = call(h.Process, http.MethodPost, "/payments/process", body, 3)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Card has expired")

	h.Processor = stubProcessor{err: payment.ErrDeclined}
	rec = call(h.Process, http.MethodPost, "/payments/process", body, 3)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

type stubBookingLookup map[uint64]*model.Booking

func (s stubBookingLookup) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	if b, ok := s[id]; ok {
		return b, nil
	}
	return nil, repository.ErrBookingNotFound
}

func TestProcessPaymentChecksBooking(t *testing.T) {
	h := &PaymentHandler{
		Processor: stubProcessor{},
		Bookings: stubBookingLookup{
			1: {ID: 1, UserID: 3, Status: model.BookingBooked},
			2: {ID: 2, UserID: 4, Status: model.BookingBooked},
			3: {ID: 3, UserID: 3, Status: model.BookingCancelled},
		},
	}
	body := func(bookingID int) string {
		return `{"booking_id":` + strconv.Itoa(bookingID) +
			`,"amount_cents":10000,"card_number":"4111111111111234","card_name":"Sam Fan","expiry_date":"12/99","cvv":"123"}`
	}

	cases := map[string]struct {
		bookingID int
		status    int
	}{
		"own active booking": {1, http.StatusOK},
		"missing booking":    {99, http.StatusNotFound},
		"someone else's":     {2, http.StatusForbidden},
		"cancelled":          {3, http.StatusConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := call(h.Process, http.MethodPost, "/payments/process", body(tc.bookingID), 3)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	rec := call(Health(stubPinger{}), http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = call(Health(stubPinger{err: errors.New("down")}), http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
