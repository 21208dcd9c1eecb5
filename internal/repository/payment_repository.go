package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// PaymentRepo records simulated payments.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create stores p.  The id is generated by the caller.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	var bookingID sql.NullInt64
	if p.BookingID != nil {
		bookingID = sql.NullInt64{Int64: int64(*p.BookingID), Valid: true}
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payments (id, booking_id, user_id, amount_cents, card_last4, card_name, expiry_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, bookingID, p.UserID, p.AmountCents, p.CardLast4, p.CardName, p.ExpiryDate, p.Status, p.CreatedAt.UTC())
	return err
}
