// Package booking coordinates seat reservation and cancellation.
//
// The Coordinator is the only code that changes seat availability.  Every
// reserve and cancel runs as one database transaction: the requested seat
// rows are locked in ascending id order, availability is checked, the
// seats are flipped with a conditional update and the ledger entry is
// written.  Either all of it commits or none of it does.
package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/metrics"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
)

// Transactor runs fn in a transaction carried by the context passed to fn.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SeatMapStore reads venues.
type SeatMapStore interface {
	GetByID(ctx context.Context, id uint64) (*model.SeatMap, error)
}

// SeatStore is the seat inventory.  LockByIDs, MarkUnavailable and
// MarkAvailable are only called inside a Transactor transaction.
type SeatStore interface {
	ListBySeatMap(ctx context.Context, seatMapID uint64) ([]model.Seat, error)
	LockByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error)
	MarkUnavailable(ctx context.Context, seatMapID uint64, ids []uint64) (int64, error)
	MarkAvailable(ctx context.Context, ids []uint64) (int64, error)
}

// Ledger stores bookings.
type Ledger interface {
	Create(ctx context.Context, b *model.Booking) error
	GetForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	Cancel(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// LayoutCache holds rendered layouts.  Implementations must tolerate a
// missing backend; errors are logged and never fail a request.
type LayoutCache interface {
	Get(ctx context.Context, seatMapID uint64) (*Layout, bool, error)
	Set(ctx context.Context, seatMapID uint64, l *Layout) error
	Invalidate(ctx context.Context, seatMapID uint64) error
}

// Listener is notified after a reserve or cancel has committed.
type Listener interface {
	OnBookingEvent(ctx context.Context, ev Event) error
}

// EventType distinguishes committed booking changes.
type EventType string

const (
	EventBooked    EventType = "booked"
	EventCancelled EventType = "cancelled"
)

// Event describes a committed booking change.
type Event struct {
	Type       EventType
	Booking    *model.Booking
	SeatMap    *model.SeatMap
	SeatLabels []string
	OccurredAt time.Time
}

// Layout is a seat map with every seat and its current availability.
type Layout struct {
	SeatMap model.SeatMap `json:"seatMap"`
	Seats   []model.Seat  `json:"seats"`
}

// ReserveRequest asks for a set of seats on one seat map.
type ReserveRequest struct {
	SeatMapID uint64
	SeatIDs   []uint64
	UserID    uint64
}

// Coordinator implements reserve, cancel, list and layout reads.
type Coordinator struct {
	tx        Transactor
	seatMaps  SeatMapStore
	seats     SeatStore
	ledger    Ledger
	cache     LayoutCache
	listeners []Listener
	now       func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCache serves layouts through c and drops the entry after every
// committed change to that seat map.
func WithCache(c LayoutCache) Option { return func(co *Coordinator) { co.cache = c } }

// WithListener adds a post-commit listener.
func WithListener(l Listener) Option {
	return func(co *Coordinator) { co.listeners = append(co.listeners, l) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(co *Coordinator) { co.now = now } }

func NewCoordinator(tx Transactor, seatMaps SeatMapStore, seats SeatStore, ledger Ledger, opts ...Option) *Coordinator {
	c := &Coordinator{
		tx:       tx,
		seatMaps: seatMaps,
		seats:    seats,
		ledger:   ledger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetLayout returns the seat map and all of its seats.
func (c *Coordinator) GetLayout(ctx context.Context, seatMapID uint64) (*Layout, error) {
	if seatMapID == 0 {
		return nil, newError(KindValidation, "seat map id is required")
	}
	if c.cache != nil {
		l, ok, err := c.cache.Get(ctx, seatMapID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("seat_map_id", seatMapID).Msg("layout cache read failed")
		}
		if ok {
			return l, nil
		}
	}

	sm, err := c.seatMaps.GetByID(ctx, seatMapID)
	if err != nil {
		return nil, seatMapError(err)
	}
	seats, err := c.seats.ListBySeatMap(ctx, seatMapID)
	if err != nil {
		return nil, internal("failed to load seats", err)
	}
	l := &Layout{SeatMap: *sm, Seats: seats}

	if c.cache != nil {
		if err := c.cache.Set(ctx, seatMapID, l); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("seat_map_id", seatMapID).Msg("layout cache write failed")
		}
	}
	return l, nil
}

// ReserveSeats books every requested seat for the user or none of them.
// Duplicate ids are collapsed.  A seat that does not exist, belongs to a
// different seat map or is already taken fails the whole request with
// KindSeatUnavailable.
func (c *Coordinator) ReserveSeats(ctx context.Context, req ReserveRequest) (b *model.Booking, err error) {
	start := c.now()
	defer func() { metrics.RecordBooking("reserve", outcome(err), c.now().Sub(start)) }()

	if req.UserID == 0 {
		return nil, newError(KindUnauthorized, "authentication required")
	}
	if req.SeatMapID == 0 {
		return nil, newError(KindValidation, "event id is required")
	}
	ids, err := normalizeSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}

	var (
		sm     *model.SeatMap
		locked []model.Seat
	)
	err = c.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sm, err = c.seatMaps.GetByID(ctx, req.SeatMapID)
		if err != nil {
			return seatMapError(err)
		}
		locked, err = c.seats.LockByIDs(ctx, ids)
		if err != nil {
			return internal("failed to lock seats", err)
		}
		if bad := unavailable(ids, locked, sm.ID); len(bad) > 0 {
			return &Error{Kind: KindSeatUnavailable, Message: "One or more seats are unavailable", SeatIDs: bad}
		}

		booking := &model.Booking{
			SeatMapID: sm.ID,
			UserID:    req.UserID,
			Status:    model.BookingBooked,
			BookedAt:  c.now().UTC(),
		}
		for _, s := range locked {
			booking.Seats = append(booking.Seats, model.BookingSeat{SeatID: s.ID, PriceCents: s.PriceCents})
			booking.TotalAmountCents += s.PriceCents
		}

		n, err := c.seats.MarkUnavailable(ctx, sm.ID, ids)
		if err != nil {
			return internal("failed to update seats", err)
		}
		if n != int64(len(ids)) {
			// Another writer got in despite the row locks; refuse rather
			// than grant a partial set.
			return &Error{Kind: KindSeatUnavailable, Message: "One or more seats are unavailable"}
		}
		if err := c.ledger.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrEmptySeatSet) {
				return newError(KindValidation, "at least one seat is required")
			}
			return internal("failed to create booking", err)
		}
		b = booking
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	metrics.SeatsReserved.Add(float64(len(ids)))
	c.afterCommit(ctx, Event{Type: EventBooked, Booking: b, SeatMap: sm, SeatLabels: labels(locked), OccurredAt: b.BookedAt})
	return b, nil
}

// CancelBooking cancels one of the caller's bookings and releases its
// seats in the same transaction.
func (c *Coordinator) CancelBooking(ctx context.Context, bookingID, userID uint64) (b *model.Booking, err error) {
	start := c.now()
	defer func() { metrics.RecordBooking("cancel", outcome(err), c.now().Sub(start)) }()

	if userID == 0 {
		return nil, newError(KindUnauthorized, "authentication required")
	}
	if bookingID == 0 {
		return nil, newError(KindValidation, "booking id is required")
	}

	var (
		sm         *model.SeatMap
		seatLabels []string
	)
	err = c.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := c.ledger.GetForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return newError(KindNotFound, "Booking not found")
			}
			return internal("failed to load booking", err)
		}
		if current.UserID != userID {
			return newError(KindForbidden, "You can only cancel your own bookings")
		}
		if !current.Active() {
			return newError(KindInvalidState, "Booking already cancelled")
		}

		cancelled, err := c.ledger.Cancel(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotActive) {
				return newError(KindInvalidState, "Booking already cancelled")
			}
			return internal("failed to cancel booking", err)
		}
		ids := current.SeatIDs()
		locked, err := c.seats.LockByIDs(ctx, ids)
		if err != nil {
			return internal("failed to lock seats", err)
		}
		seatLabels = labels(locked)
		n, err := c.seats.MarkAvailable(ctx, ids)
		if err != nil {
			return internal("failed to release seats", err)
		}
		if n != int64(len(ids)) {
			return internal("seat availability does not match booking", nil)
		}
		if sm, err = c.seatMaps.GetByID(ctx, current.SeatMapID); err != nil {
			return seatMapError(err)
		}
		b = cancelled
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	metrics.SeatsReleased.Add(float64(len(b.Seats)))
	at := c.now().UTC()
	if b.CancelledAt != nil {
		at = *b.CancelledAt
	}
	c.afterCommit(ctx, Event{Type: EventCancelled, Booking: b, SeatMap: sm, SeatLabels: seatLabels, OccurredAt: at})
	return b, nil
}

// ListBookings returns the user's bookings, newest first.
func (c *Coordinator) ListBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	if userID == 0 {
		return nil, newError(KindUnauthorized, "authentication required")
	}
	out, err := c.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal("failed to list bookings", err)
	}
	return out, nil
}

// afterCommit runs side effects that must not affect the outcome of an
// already committed change.
func (c *Coordinator) afterCommit(ctx context.Context, ev Event) {
	log := logging.Ctx(ctx)
	if c.cache != nil && ev.SeatMap != nil {
		if err := c.cache.Invalidate(ctx, ev.SeatMap.ID); err != nil {
			log.Warn().Err(err).Uint64("seat_map_id", ev.SeatMap.ID).Msg("layout cache invalidation failed")
		}
	}
	for _, l := range c.listeners {
		if err := l.OnBookingEvent(ctx, ev); err != nil {
			metrics.EventPublishFailures.Inc()
			log.Warn().Err(err).Str("type", string(ev.Type)).Uint64("booking_id", ev.Booking.ID).Msg("booking listener failed")
		}
	}
	log.Info().
		Str("type", string(ev.Type)).
		Uint64("booking_id", ev.Booking.ID).
		Uint64("user_id", ev.Booking.UserID).
		Int("seats", len(ev.Booking.Seats)).
		Int64("total_amount_cents", ev.Booking.TotalAmountCents).
		Msg("booking committed")
}

// normalizeSeatIDs drops duplicates and rejects empty input or zero ids.
func normalizeSeatIDs(in []uint64) ([]uint64, error) {
	if len(in) == 0 {
		return nil, newError(KindValidation, "at least one seat is required")
	}
	seen := make(map[uint64]struct{}, len(in))
	out := make([]uint64, 0, len(in))
	for _, id := range in {
		if id == 0 {
			return nil, newError(KindValidation, "seat ids must be positive")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// unavailable returns the requested ids that are missing, on another seat
// map or already taken.
func unavailable(requested []uint64, locked []model.Seat, seatMapID uint64) []uint64 {
	byID := make(map[uint64]model.Seat, len(locked))
	for _, s := range locked {
		byID[s.ID] = s
	}
	var bad []uint64
	for _, id := range requested {
		s, ok := byID[id]
		if !ok || s.SeatMapID != seatMapID || !s.IsAvailable {
			bad = append(bad, id)
		}
	}
	return bad
}

func labels(seats []model.Seat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.Label
	}
	return out
}

func seatMapError(err error) error {
	if errors.Is(err, repository.ErrSeatMapNotFound) {
		return newError(KindNotFound, "Seat map not found")
	}
	return internal("failed to load seat map", err)
}

// asError makes sure callers always receive an *Error.
func asError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal("transaction failed", err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
