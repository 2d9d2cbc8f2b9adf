package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courtbook/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const busyKeyPrefix = "calendar:busy:"

// BusySource is anything that can answer a free/busy query.
type BusySource interface {
	BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error)
}

// CachedBusySource keeps successful free/busy answers in Redis for ttl.
// Failures are never cached.
type CachedBusySource struct {
	upstream BusySource
	client   *redis.Client
	scope    string
	ttl      time.Duration
	logger   *zap.Logger
}

func NewCachedBusySource(upstream BusySource, client *redis.Client, scope string, ttl time.Duration, logger *zap.Logger) *CachedBusySource {
	return &CachedBusySource{upstream: upstream, client: client, scope: scope, ttl: ttl, logger: logger}
}

func (c *CachedBusySource) key(start, end time.Time) string {
	return fmt.Sprintf("%s%s:%d-%d", busyKeyPrefix, c.scope, start.Unix(), end.Unix())
}

func (c *CachedBusySource) BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.upstream.BusyIntervals(ctx, start, end)
	}
	key := c.key(start, end)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []models.Interval
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("Dropping corrupt busy cache entry", zap.String("key", key))
	case err != redis.Nil:
		c.logger.Warn("Busy cache read failed", zap.String("key", key), zap.Error(err))
	}

	intervals, err := c.upstream.BusyIntervals(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(intervals); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Busy cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return intervals, nil
}

// Invalidate drops every cached answer for this calendar.
func (c *CachedBusySource) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, busyKeyPrefix+c.scope+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
