// Package repository implements MySQL persistence for seat maps, seats,
// bookings, users, refresh tokens and payments.  Repositories accept a
// context that may carry a transaction opened by TxManager.WithTx; every
// query runs on that transaction when present.
//
// The sentinel errors below let higher layers distinguish failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrSeatMapNotFound is returned when a seat map id does not exist.
	ErrSeatMapNotFound = errors.New("seat map not found")
	// ErrSeatMapNameTaken is returned when creating a seat map whose name
	// is already in use.
	ErrSeatMapNameTaken = errors.New("seat map name already exists")
	// ErrSeatNotFound is returned by single-seat lookups.
	ErrSeatNotFound = errors.New("seat not found")
	// ErrBookingNotFound is returned when a booking id does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingNotActive is returned when cancelling a booking that is
	// no longer in the booked state.
	ErrBookingNotActive = errors.New("booking is not active")
	// ErrEmptySeatSet is returned when a booking is created without seats.
	ErrEmptySeatSet = errors.New("booking requires at least one seat")
	// ErrUserNotFound is returned by user lookups that match nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned on signup with a registered email.
	ErrEmailExists = errors.New("email already exists")
	// ErrTokenInvalid covers unknown, revoked and expired refresh tokens.
	ErrTokenInvalid = errors.New("refresh token invalid")
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
