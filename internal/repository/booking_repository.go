package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// BookingRepo is the booking ledger: `bookings` plus the `booking_seats`
// link table that records the price of every seat at booking time.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts b with its seats and sets b.ID.  It must run inside the
// same transaction that flipped the seats.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return ErrEmptySeatSet
	}
	if b.Status == "" {
		b.Status = model.BookingBooked
	}
	if b.BookedAt.IsZero() {
		b.BookedAt = time.Now().UTC()
	}
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`INSERT INTO bookings (seat_map_id, user_id, total_amount_cents, status, booked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		b.SeatMapID, b.UserID, b.TotalAmountCents, string(b.Status), b.BookedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	query := "INSERT INTO booking_seats (booking_id, seat_id, price_cents) VALUES "
	args := make([]any, 0, len(b.Seats)*3)
	for i, s := range b.Seats {
		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?)"
		args = append(args, b.ID, s.SeatID, s.PriceCents)
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

// GetForUpdate loads a booking with its seats and locks the booking row
// for the rest of the transaction.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.get(ctx, id, true)
}

// GetByID loads a booking with its seats.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.get(ctx, id, false)
}

func (r *BookingRepo) get(ctx context.Context, id uint64, lock bool) (*model.Booking, error) {
	query := `SELECT id, seat_map_id, user_id, total_amount_cents, status, booked_at, cancelled_at
	          FROM bookings WHERE id = ?`
	if lock {
		query += " FOR UPDATE"
	}
	q := conn(ctx, r.db)
	var (
		b           model.Booking
		status      string
		cancelledAt sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.SeatMapID, &b.UserID, &b.TotalAmountCents, &status, &b.BookedAt, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}

	rows, err := q.QueryContext(ctx,
		"SELECT seat_id, price_cents FROM booking_seats WHERE booking_id = ? ORDER BY seat_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.SeatID, &s.PriceCents); err != nil {
			return nil, err
		}
		b.Seats = append(b.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Cancel moves a booked booking to cancelled and returns the updated
// record.  The status guard in the WHERE clause makes a second cancel a
// no-op that reports ErrBookingNotActive.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64) (*model.Booking, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE bookings SET status = ?, cancelled_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?",
		string(model.BookingCancelled), id, string(model.BookingBooked))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrBookingNotActive
	}
	return r.GetByID(ctx, id)
}

// ListByUser returns the user's bookings, newest first, with the seat map
// and every seat resolved.  Seats are fetched with a single second
// query and merged by booking id.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx,
		`SELECT b.id, b.status, b.total_amount_cents, b.booked_at, b.cancelled_at, m.id, m.name, m.layout_json
		 FROM bookings b
		 JOIN seat_maps m ON m.id = b.seat_map_id
		 WHERE b.user_id = ?
		 ORDER BY b.booked_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]model.BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var (
			d           model.BookingDetail
			status      string
			cancelledAt sql.NullTime
			layout      []byte
		)
		if err := rows.Scan(&d.ID, &status, &d.TotalAmountCents, &d.BookedAt, &cancelledAt,
			&d.SeatMap.ID, &d.SeatMap.Name, &layout); err != nil {
			return nil, err
		}
		if len(layout) > 0 {
			if err := json.Unmarshal(layout, &d.SeatMap.Layout); err != nil {
				return nil, fmt.Errorf("decode layout of seat map %d: %w", d.SeatMap.ID, err)
			}
		}
		d.Status = model.BookingStatus(status)
		if cancelledAt.Valid {
			t := cancelledAt.Time
			d.CancelledAt = &t
		}
		d.Seats = []model.BookingSeatDetail{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]uint64, len(details))
	for i, d := range details {
		ids[i] = d.ID
	}
	in, args := inClause(ids)
	srows, err := q.QueryContext(ctx,
		`SELECT bs.booking_id, s.id, s.section, s.row_num, s.seat_num, s.label, bs.price_cents
		 FROM booking_seats bs
		 JOIN seats s ON s.id = bs.seat_id
		 WHERE bs.booking_id IN (`+in+`)
		 ORDER BY bs.booking_id, s.section, s.row_num, s.seat_num`, args...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			bookingID uint64
			s         model.BookingSeatDetail
			section   string
		)
		if err := srows.Scan(&bookingID, &s.ID, &section, &s.Row, &s.Number, &s.Label, &s.PriceCents); err != nil {
			return nil, err
		}
		s.Section = model.Section(section)
		if idx, ok := index[bookingID]; ok {
			details[idx].Seats = append(details[idx].Seats, s)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
