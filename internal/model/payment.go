package model

import "time"

// Payment is the record of a simulated card payment.  Only the last four
// digits of the card are ever stored.
type Payment struct {
	ID          string    // payments.id ("PAY-XXXXXXXXX")
	BookingID   *uint64   // payments.booking_id (nullable)
	UserID      uint64    // payments.user_id
	AmountCents int64     // payments.amount_cents
	CardLast4   string    // payments.card_last4
	CardName    string    // payments.card_name
	ExpiryDate  string    // payments.expiry_date (MM/YY)
	Status      string    // payments.status
	CreatedAt   time.Time // payments.created_at
}

// MaskedCard renders the stored card digits the way receipts show them.
func (p *Payment) MaskedCard() string {
	return "**** **** **** " + p.CardLast4
}
