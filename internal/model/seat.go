package model

import "time"

// Seat is a single bookable position on a seat map.  Seats are unique
// by (seat map, section, row, number).  IsAvailable is the only field
// that changes during booking and it is flipped exclusively inside the
// booking transaction.
type Seat struct {
	ID          uint64    `json:"id"`           // seats.id
	SeatMapID   uint64    `json:"seat_map_id"`  // seats.seat_map_id
	Section     Section   `json:"section"`      // seats.section
	Row         int       `json:"row"`          // seats.row_num
	Number      int       `json:"number"`       // seats.seat_num
	Label       string    `json:"label"`        // seats.label
	PriceCents  int64     `json:"price_cents"`  // seats.price_cents
	IsAvailable bool      `json:"is_available"` // seats.is_available
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
