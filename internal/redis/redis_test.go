package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redisv9.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
}

func TestMarkReadAdvances(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := MarkRead(ctx, client, "EXT-1", t1)
	require.NoError(t, err)
	assert.Equal(t, t1.UnixMilli(), got.UnixMilli())

	stored, err := LastReadAt(ctx, client, "EXT-1")
	require.NoError(t, err)
	assert.Equal(t, t1.UnixMilli(), stored.UnixMilli())
}

func TestMarkReadIsMonotonic(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	t0 := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := MarkRead(ctx, client, "EXT-1", t1)
	require.NoError(t, err)

	// an older timestamp must not rewind the marker
	got, err := MarkRead(ctx, client, "EXT-1", t0)
	require.NoError(t, err)
	assert.Equal(t, t1.UnixMilli(), got.UnixMilli())

	stored, err := LastReadAt(ctx, client, "EXT-1")
	require.NoError(t, err)
	assert.Equal(t, t1.UnixMilli(), stored.UnixMilli())
}

func TestLastReadAtUnreadThread(t *testing.T) {
	client := newTestClient(t)

	stored, err := LastReadAt(context.Background(), client, "EXT-never")
	require.NoError(t, err)
	assert.True(t, stored.IsZero())
}
