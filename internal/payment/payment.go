// Package payment simulates card payments.  No money moves: the processor
// validates the card details, waits, fails a configurable share of
// requests and records the rest.
package payment

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sportshub-ticketing/internal/config"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// ErrDeclined is returned for the simulated share of failed payments.
var ErrDeclined = errors.New("payment processing failed")

// InvalidError reports a card or amount that fails validation.
type InvalidError struct{ Reason string }

func (e *InvalidError) Error() string { return e.Reason }

// Request is a card payment request.
type Request struct {
	BookingID   *uint64
	AmountCents int64
	CardNumber  string
	CardName    string
	ExpiryDate  string // MM/YY
	CVV         string
}

// Store persists completed payments.
type Store interface {
	Create(ctx context.Context, p *model.Payment) error
}

type Processor struct {
	cfg   config.PaymentConfig
	store Store
	now   func() time.Time
	roll  func() float64
	newID func() string
}

func NewProcessor(cfg config.PaymentConfig, store Store) *Processor {
	return &Processor{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		roll:  rand.Float64,
		newID: paymentID,
	}
}

// Validate checks the card the same way a gateway would pre-screen it.
func (p *Processor) Validate(r Request) error {
	digits := strings.ReplaceAll(r.CardNumber, " ", "")
	if len(digits) != 16 || !allDigits(digits) {
		return &InvalidError{Reason: "Invalid card number"}
	}
	if expired(r.ExpiryDate, p.now()) {
		return &InvalidError{Reason: "Card has expired"}
	}
	if l := len(r.CVV); l < 3 || l > 4 || !allDigits(r.CVV) {
		return &InvalidError{Reason: "Invalid CVV"}
	}
	if r.AmountCents <= 0 {
		return &InvalidError{Reason: "Invalid amount"}
	}
	return nil
}

// Process validates, simulates settlement and stores the result.
func (p *Processor) Process(ctx context.Context, userID uint64, r Request) (*model.Payment, error) {
	if err := p.Validate(r); err != nil {
		return nil, err
	}
	if p.cfg.Delay > 0 {
		t := time.NewTimer(p.cfg.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if p.roll() < p.cfg.FailureRate {
		return nil, ErrDeclined
	}

	digits := strings.ReplaceAll(r.CardNumber, " ", "")
	pay := &model.Payment{
		ID:          p.newID(),
		BookingID:   r.BookingID,
		UserID:      userID,
		AmountCents: r.AmountCents,
		CardLast4:   digits[len(digits)-4:],
		CardName:    strings.TrimSpace(r.CardName),
		ExpiryDate:  r.ExpiryDate,
		Status:      "completed",
		CreatedAt:   p.now().UTC(),
	}
	if p.store != nil {
		if err := p.store.Create(ctx, pay); err != nil {
			return nil, err
		}
	}
	return pay, nil
}

// expired reports whether an MM/YY date is malformed or in the past.  A
// card is valid through the end of its expiry month.
func expired(mmyy string, now time.Time) bool {
	parts := strings.Split(mmyy, "/")
	if len(parts) != 2 {
		return true
	}
	month, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	year, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || month < 1 || month > 12 || year < 0 || year > 99 {
		return true
	}
	curYear := now.Year() % 100
	curMonth := int(now.Month())
	return year < curYear || (year == curYear && month < curMonth)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func paymentID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(raw[:9])
}
