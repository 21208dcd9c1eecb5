// Package queue carries booking events over RabbitMQ: a publisher that
// the booking coordinator notifies after every commit, and a consumer that
// appends each event to an audit log.
package queue

import (
	"time"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
)

// BookingEvent is the wire payload on the booking queue.  It carries
// enough for downstream consumers to log or notify without reading the
// primary database.
type BookingEvent struct {
	Type             string    `json:"type"` // booked | cancelled
	BookingID        uint64    `json:"booking_id"`
	UserID           uint64    `json:"user_id"`
	SeatMapID        uint64    `json:"seat_map_id"`
	SeatMapName      string    `json:"seat_map_name"`
	SeatLabels       []string  `json:"seat_labels"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewBookingEvent converts a committed coordinator event to its payload.
func NewBookingEvent(ev booking.Event) BookingEvent {
	out := BookingEvent{
		Type:       string(ev.Type),
		SeatLabels: ev.SeatLabels,
		OccurredAt: ev.OccurredAt.UTC(),
	}
	if out.SeatLabels == nil {
		out.SeatLabels = []string{}
	}
	if b := ev.Booking; b != nil {
		out.BookingID = b.ID
		out.UserID = b.UserID
		out.SeatMapID = b.SeatMapID
		out.TotalAmountCents = b.TotalAmountCents
	}
	if ev.SeatMap != nil {
		out.SeatMapName = ev.SeatMap.Name
	}
	return out
}
