package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
)

type inTxKey struct{}

// memStore is an in-memory Transactor, SeatMapStore, SeatStore and Ledger.
// A transaction holds the store mutex for its whole duration and restores
// a snapshot on failure, which gives serializable semantics.
type memStore struct {
	mu       sync.Mutex
	seatMaps map[uint64]model.SeatMap
	seats    map[uint64]model.Seat
	bookings map[uint64]model.Booking
	nextID   uint64

	// failCreate makes Ledger.Create fail after the seats were flipped.
	failCreate error
	// markCalls counts MarkUnavailable invocations.
	markCalls int
}

func newMemStore() *memStore {
	return &memStore{
		seatMaps: map[uint64]model.SeatMap{},
		seats:    map[uint64]model.Seat{},
		bookings: map[uint64]model.Booking{},
		nextID:   1,
	}
}

func (s *memStore) addSeatMap(id uint64, name string) {
	s.seatMaps[id] = model.SeatMap{ID: id, Name: name}
}

func (s *memStore) addSeat(id, seatMapID uint64, label string, price int64) {
	s.seats[id] = model.Seat{ID: id, SeatMapID: seatMapID, Section: model.SectionTop, Label: label, PriceCents: price, IsAvailable: true}
}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seats := make(map[uint64]model.Seat, len(s.seats))
	for k, v := range s.seats {
		seats[k] = v
	}
	bookings := make(map[uint64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	nextID := s.nextID

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.seats, s.bookings, s.nextID = seats, bookings, nextID
		return err
	}
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.SeatMap, error) {
	defer s.lock(ctx)()
	m, ok := s.seatMaps[id]
	if !ok {
		return nil, repository.ErrSeatMapNotFound
	}
	return &m, nil
}

func (s *memStore) ListBySeatMap(ctx context.Context, seatMapID uint64) ([]model.Seat, error) {
	defer s.lock(ctx)()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.SeatMapID == seatMapID {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) LockByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	defer s.lock(ctx)()
	var out []model.Seat
	for _, id := range ids {
		if seat, ok := s.seats[id]; ok {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) MarkUnavailable(ctx context.Context, seatMapID uint64, ids []uint64) (int64, error) {
	defer s.lock(ctx)()
	s.markCalls++
	var n int64
	for _, id := range ids {
		seat, ok := s.seats[id]
		if ok && seat.SeatMapID == seatMapID && seat.IsAvailable {
			seat.IsAvailable = false
			s.seats[id] = seat
			n++
		}
	}
	return n, nil
}

func (s *memStore) MarkAvailable(ctx context.Context, ids []uint64) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for _, id := range ids {
		seat, ok := s.seats[id]
		if ok && !seat.IsAvailable {
			seat.IsAvailable = true
			s.seats[id] = seat
			n++
		}
	}
	return n, nil
}

func (s *memStore) Create(ctx context.Context, b *model.Booking) error {
	defer s.lock(ctx)()
	if s.failCreate != nil {
		return s.failCreate
	}
	if len(b.Seats) == 0 {
		return repository.ErrEmptySeatSet
	}
	b.ID = s.nextID
	s.nextID++
	stored := *b
	stored.Seats = append([]model.BookingSeat(nil), b.Seats...)
	s.bookings[b.ID] = stored
	return nil
}

func (s *memStore) GetForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	defer s.lock(ctx)()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (s *memStore) Cancel(ctx context.Context, id uint64) (*model.Booking, error) {
	defer s.lock(ctx)()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	if b.Status != model.BookingBooked {
		return nil, repository.ErrBookingNotActive
	}
	b.Status = model.BookingCancelled
	s.bookings[id] = b
	return &b, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	defer s.lock(ctx)()
	var out []model.BookingDetail
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		d := model.BookingDetail{
			ID:               b.ID,
			SeatMap:          model.SeatMapRef{ID: b.SeatMapID, Name: s.seatMaps[b.SeatMapID].Name, Layout: s.seatMaps[b.SeatMapID].Layout},
			TotalAmountCents: b.TotalAmountCents,
			Status:           b.Status,
			BookedAt:         b.BookedAt,
		}
		for _, bs := range b.Seats {
			seat := s.seats[bs.SeatID]
			d.Seats = append(d.Seats, model.BookingSeatDetail{ID: seat.ID, Label: seat.Label, PriceCents: bs.PriceCents})
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookedAt.Equal(out[j].BookedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].BookedAt.After(out[j].BookedAt)
	})
	return out, nil
}

// consistencyError checks that the unavailable seats of every seat map
// are exactly the seats held by active bookings and that no seat is held
// twice.
func (s *memStore) consistencyError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := map[uint64]uint64{}
	for _, b := range s.bookings {
		if b.Status != model.BookingBooked {
			continue
		}
		for _, bs := range b.Seats {
			if other, dup := held[bs.SeatID]; dup {
				return fmt.Errorf("seat %s held by bookings %d and %d", s.seats[bs.SeatID].Label, other, b.ID)
			}
			held[bs.SeatID] = b.ID
		}
	}
	for id, seat := range s.seats {
		_, isHeld := held[id]
		if seat.IsAvailable == isHeld {
			return fmt.Errorf("availability of %s disagrees with the ledger", seat.Label)
		}
	}
	return nil
}

// recordingCache is a LayoutCache that remembers invalidations.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[uint64]*Layout
	invalidated []uint64
	failGet     error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[uint64]*Layout{}}
}

func (c *recordingCache) Get(_ context.Context, id uint64) (*Layout, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	l, ok := c.entries[id]
	return l, ok, nil
}

func (c *recordingCache) Set(_ context.Context, id uint64, l *Layout) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = l
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// recordingListener captures events and can be told to fail.
type recordingListener struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (l *recordingListener) OnBookingEvent(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return l.err
}
