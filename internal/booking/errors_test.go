package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), KindInternal},
		{"typed", newError(KindForbidden, "nope"), KindForbidden},
		{"wrapped", fmt.Errorf("ctx: %w", newError(KindNotFound, "gone")), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindSeatUnavailable, Message: "One or more seats are unavailable", SeatIDs: []uint64{3}}

	assert.True(t, errors.Is(err, ErrSeatUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidState))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := internal("failed to lock seats", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNormalizeSeatIDs(t *testing.T) {
	ids, err := normalizeSeatIDs([]uint64{9, 3, 9, 1})
	assert.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 9}, ids)

	_, err = normalizeSeatIDs(nil)
	assert.Equal(t, KindValidation, KindOf(err))
}
