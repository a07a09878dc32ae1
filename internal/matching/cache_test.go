package matching

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemap/lifemap-api/internal/catalog"
)

func TestDecisionKeyStable(t *testing.T) {
	candidates := testCandidates()
	reversed := []catalog.Provider{candidates[2], candidates[1], candidates[0]}

	a := DecisionKey(RequestContext{Title: " Speech ", ServiceCategory: "Speech Therapy"}, candidates)
	b := DecisionKey(RequestContext{Title: "speech", ServiceCategory: "speech therapy"}, reversed)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "oracle:decision:"))

	c := DecisionKey(RequestContext{Title: "speech", ServiceCategory: "speech therapy"}, candidates[:2])
	assert.NotEqual(t, a, c, "candidate set must be part of the key")
}

func TestRedisDecisionCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisDecisionCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "oracle:decision:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "oracle:decision:k", 4))
	id, ok, err := cache.Get(ctx, "oracle:decision:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "oracle:decision:k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUDecisionCacheEvicts(t *testing.T) {
	cache := NewLRUDecisionCache(2, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", 1))
	require.NoError(t, cache.Set(ctx, "b", 2))
	require.NoError(t, cache.Set(ctx, "c", 3))

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok)
	id, ok, _ := cache.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 3, id)
}
