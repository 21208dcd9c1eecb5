package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// SeatRepo reads and flips seats.  MarkUnavailable and MarkAvailable are
// conditional updates; callers compare the returned count against the
// number of ids they asked for.
type SeatRepo struct{ db *sql.DB }

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = "id, seat_map_id, section, row_num, seat_num, label, price_cents, is_available, created_at, updated_at"

// CreateBulk inserts seats in batches.  IDs are not read back; callers
// reload through ListBySeatMap.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	const batch = 500
	q := conn(ctx, r.db)
	for start := 0; start < len(seats); start += batch {
		end := start + batch
		if end > len(seats) {
			end = len(seats)
		}
		query := "INSERT INTO seats (seat_map_id, section, row_num, seat_num, label, price_cents, is_available) VALUES "
		args := make([]any, 0, (end-start)*7)
		for i, s := range seats[start:end] {
			if i > 0 {
				query += ", "
			}
			query += "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, s.SeatMapID, string(s.Section), s.Row, s.Number, s.Label, s.PriceCents, s.IsAvailable)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// ListBySeatMap returns all seats of a seat map in display order.
func (r *SeatRepo) ListBySeatMap(ctx context.Context, seatMapID uint64) ([]model.Seat, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+seatColumns+" FROM seats WHERE seat_map_id = ? ORDER BY section, row_num, seat_num",
		seatMapID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// LockByIDs loads the given seats and takes a row lock on each of them.
// Locks are acquired in ascending id order so two transactions asking for
// overlapping sets cannot deadlock.  Unknown ids are simply absent from
// the result.
func (r *SeatRepo) LockByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	in, args := inClause(sorted)
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+seatColumns+" FROM seats WHERE id IN ("+in+") ORDER BY id FOR UPDATE", args...)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// MarkUnavailable flips the given seats of seatMapID from available to
// unavailable and returns how many rows actually changed.
func (r *SeatRepo) MarkUnavailable(ctx context.Context, seatMapID uint64, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE seats SET is_available = 0 WHERE seat_map_id = ? AND is_available = 1 AND id IN ("+in+")",
		append([]any{seatMapID}, args...)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkAvailable flips the given seats back to available and returns how
// many rows actually changed.
func (r *SeatRepo) MarkAvailable(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE seats SET is_available = 1 WHERE is_available = 0 AND id IN ("+in+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetByID returns one seat or ErrSeatNotFound.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT "+seatColumns+" FROM seats WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	seats, err := scanSeats(rows)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, ErrSeatNotFound
	}
	return &seats[0], nil
}

// UpdatePrice changes the list price of a seat.  Existing bookings keep
// the price they captured.
func (r *SeatRepo) UpdatePrice(ctx context.Context, id uint64, priceCents int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "UPDATE seats SET price_cents = ? WHERE id = ?", priceCents, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm existence.
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrSeatNotFound) {
			return err
		}
	}
	return nil
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var (
			s       model.Seat
			section string
		)
		if err := rows.Scan(&s.ID, &s.SeatMapID, &section, &s.Row, &s.Number, &s.Label,
			&s.PriceCents, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Section = model.Section(section)
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
