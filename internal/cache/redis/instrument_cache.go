package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradewire/ictbot/internal/domain"
)

// instrumentTTL bounds how long cached instrument keys are trusted. The
// master changes between sessions, so a day is enough.
const instrumentTTL = 24 * time.Hour

// InstrumentCache implements domain.InstrumentCache using plain Redis
// strings, one key per trading symbol.
//
// Key schema:
//
//	instrument:{SYMBOL} - string value of the broker instrument key
type InstrumentCache struct {
	rdb *redis.Client
}

// NewInstrumentCache creates an InstrumentCache backed by the given Client.
func NewInstrumentCache(c *Client) *InstrumentCache {
	return &InstrumentCache{rdb: c.Underlying()}
}

func instrumentKey(symbol string) string {
	return "instrument:" + symbol
}

// Get returns the instrument key cached for symbol, or domain.ErrNotFound.
func (ic *InstrumentCache) Get(ctx context.Context, symbol string) (string, error) {
	val, err := ic.rdb.Get(ctx, instrumentKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("redis: get instrument %s: %w", symbol, err)
	}
	return val, nil
}

// SetAll stores the full symbol-to-instrument-key map in one pipeline.
func (ic *InstrumentCache) SetAll(ctx context.Context, keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := ic.rdb.Pipeline()
	for symbol, key := range keys {
		pipe.Set(ctx, instrumentKey(symbol), key, instrumentTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set instruments: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.InstrumentCache = (*InstrumentCache)(nil)
