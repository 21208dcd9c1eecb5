// Package cache keeps rendered seat map layouts in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/metrics"
)

// SeatMapCache implements booking.LayoutCache.  A nil client turns every
// call into a miss so the service runs without Redis.
type SeatMapCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewSeatMapCache(rdb *redis.Client, ttl time.Duration, prefix string) *SeatMapCache {
	if prefix == "" {
		prefix = "seatmap"
	}
	return &SeatMapCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Key returns the Redis key holding the layout of seatMapID.
func (c *SeatMapCache) Key(seatMapID uint64) string {
	return fmt.Sprintf("%s:%d", c.prefix, seatMapID)
}

func (c *SeatMapCache) Get(ctx context.Context, seatMapID uint64) (*booking.Layout, bool, error) {
	if c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, c.Key(seatMapID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.SeatMapCacheRequests.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.SeatMapCacheRequests.WithLabelValues("error").Inc()
		return nil, false, err
	}
	var l booking.Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		metrics.SeatMapCacheRequests.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decode cached layout: %w", err)
	}
	metrics.SeatMapCacheRequests.WithLabelValues("hit").Inc()
	return &l, true, nil
}

func (c *SeatMapCache) Set(ctx context.Context, seatMapID uint64, l *booking.Layout) error {
	if c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.Key(seatMapID), string(raw), c.ttl).Err()
}

// Invalidate drops the cached layout so the next read sees the committed
// availability.
func (c *SeatMapCache) Invalidate(ctx context.Context, seatMapID uint64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.Key(seatMapID)).Err()
}
