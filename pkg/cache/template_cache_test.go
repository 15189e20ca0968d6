package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTemplate struct {
	ID      uint64 `json:"id"`
	AutoKey bool   `json:"auto_key"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Set("template:7", testTemplate{ID: 7, AutoKey: true}))

	var got testTemplate
	require.NoError(t, c.Get("template:7", &got))
	assert.Equal(t, uint64(7), got.ID)
	assert.True(t, got.AutoKey)
}

func TestCacheMiss(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)

	var got testTemplate
	assert.ErrorIs(t, c.Get("template:404", &got), ErrMiss)
}

func TestCacheDelete(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Set("template:7", testTemplate{ID: 7}))
	c.Delete("template:7")

	var got testTemplate
	assert.ErrorIs(t, c.Get("template:7", &got), ErrMiss)
}
