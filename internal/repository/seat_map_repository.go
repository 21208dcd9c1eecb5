package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// SeatMapRepo persists venues in `seat_maps`.  The layout is stored as a
// JSON document because it is only ever read back whole.
type SeatMapRepo struct{ db *sql.DB }

func NewSeatMapRepo(db *sql.DB) *SeatMapRepo { return &SeatMapRepo{db: db} }

// Create inserts m and fills in its id and timestamps.
func (r *SeatMapRepo) Create(ctx context.Context, m *model.SeatMap) error {
	layout, err := json.Marshal(m.Layout)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO seat_maps (name, layout_json) VALUES (?, ?)", m.Name, layout)
	if err != nil {
		if isDuplicate(err) {
			return ErrSeatMapNameTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = *stored
	return nil
}

// GetByID returns the seat map or ErrSeatMapNotFound.
func (r *SeatMapRepo) GetByID(ctx context.Context, id uint64) (*model.SeatMap, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, name, layout_json, created_at, updated_at FROM seat_maps WHERE id = ?", id)
	m, err := scanSeatMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatMapNotFound
	}
	return m, err
}

// List returns every seat map ordered by name.
func (r *SeatMapRepo) List(ctx context.Context) ([]model.SeatMap, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT id, name, layout_json, created_at, updated_at FROM seat_maps ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SeatMap, 0)
	for rows.Next() {
		m, err := scanSeatMap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeatMap(s rowScanner) (*model.SeatMap, error) {
	var (
		m      model.SeatMap
		layout []byte
	)
	if err := s.Scan(&m.ID, &m.Name, &layout, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if len(layout) > 0 {
		if err := json.Unmarshal(layout, &m.Layout); err != nil {
			return nil, fmt.Errorf("decode layout of seat map %d: %w", m.ID, err)
		}
	}
	return &m, nil
}
