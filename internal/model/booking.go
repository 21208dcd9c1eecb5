package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only legal
// transition is booked -> cancelled.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingSeat links a booking to one seat and records the price that
// was charged for it when the booking was made.
type BookingSeat struct {
	SeatID     uint64 `json:"seat_id"`     // booking_seats.seat_id
	PriceCents int64  `json:"price_cents"` // booking_seats.price_cents
}

// Booking records a user's purchase of one or more seats on a single
// seat map.  TotalAmountCents is the sum of the seat prices captured at
// booking time and is never recomputed.
type Booking struct {
	ID               uint64        `json:"id"`
	SeatMapID        uint64        `json:"seat_map_id"`
	UserID           uint64        `json:"user_id"`
	Seats            []BookingSeat `json:"seats"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	Status           BookingStatus `json:"status"`
	BookedAt         time.Time     `json:"booked_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
}

// SeatIDs returns the ids of the booked seats in stored order.
func (b *Booking) SeatIDs() []uint64 {
	ids := make([]uint64, len(b.Seats))
	for i, s := range b.Seats {
		ids[i] = s.SeatID
	}
	return ids
}

// Active reports whether the booking still holds its seats.
func (b *Booking) Active() bool { return b.Status == BookingBooked }

// BookingSeatDetail is a seat as it appears in a booking listing.
type BookingSeatDetail struct {
	ID         uint64  `json:"id"`
	Section    Section `json:"section"`
	Row        int     `json:"row"`
	Number     int     `json:"number"`
	Label      string  `json:"label"`
	PriceCents int64   `json:"price_cents"`
}

// SeatMapRef is the seat map embedded in listings, layout included so the
// client can draw the booked seats in place.
type SeatMapRef struct {
	ID     uint64       `json:"id"`
	Name   string       `json:"name"`
	Layout LayoutConfig `json:"layoutConfig"`
}

// BookingDetail is a booking with its seat map and seats resolved, as
// returned to the booking's owner.
type BookingDetail struct {
	ID               uint64              `json:"id"`
	SeatMap          SeatMapRef          `json:"seatMap"`
	Seats            []BookingSeatDetail `json:"seats"`
	TotalAmountCents int64               `json:"total_amount_cents"`
	Status           BookingStatus       `json:"status"`
	BookedAt         time.Time           `json:"booked_at"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
}
