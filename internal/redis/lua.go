package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua scripts
const (
	// MarkReadScript advances a chat read marker monotonically. The stored
	// value only moves forward, so concurrent mark-read calls and a stale
	// timestamp arriving late cannot rewind the marker. Returns the marker
	// after the merge.
	MarkReadScript = `
		local key = KEYS[1]
		local requested = tonumber(ARGV[1])

		local current = redis.call('GET', key)
		if not current then
			current = 0
		else
			current = tonumber(current)
		end

		if requested > current then
			redis.call('SET', key, requested)
			return requested
		end

		return current
	`
)

// ReadMarkerKey builds the chat read marker key for an order.
func ReadMarkerKey(externalOrderID string) string {
	return fmt.Sprintf("chat:last_read:%s", externalOrderID)
}

// MarkRead merges a read timestamp into the order's marker, taking the max
// of the stored and requested value. Returns the effective marker.
func MarkRead(ctx context.Context, client *redis.Client, externalOrderID string, at time.Time) (time.Time, error) {
	millis, err := client.Eval(ctx, MarkReadScript,
		[]string{ReadMarkerKey(externalOrderID)},
		at.UnixMilli()).Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to advance read marker: %w", err)
	}
	return time.UnixMilli(millis), nil
}

// LastReadAt loads the read marker for an order. The zero time means the
// thread has never been read.
func LastReadAt(ctx context.Context, client *redis.Client, externalOrderID string) (time.Time, error) {
	millis, err := client.Get(ctx, ReadMarkerKey(externalOrderID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}
