package alarm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRegistry(t *testing.T) *RedisRegistry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRegistry(client)
}

func TestRedisRegistry_PutGetReplace(t *testing.T) {
	ctx := context.Background()
	reg := newTestRedisRegistry(t)

	at := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	require.NoError(t, reg.Put(ctx, Registration{Token: "daily", FireAt: at, Precision: PrecisionAlarmClock, CreatedAt: at.Add(-time.Hour)}))
	require.NoError(t, reg.Put(ctx, Registration{Token: "daily", FireAt: at.Add(24 * time.Hour), Precision: PrecisionInexact}))

	got, err := reg.Get(ctx, "daily")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Add(24*time.Hour).Equal(got.FireAt))
	assert.Equal(t, PrecisionInexact, got.Precision)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := reg.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisRegistry_TakeAndClear(t *testing.T) {
	ctx := context.Background()
	reg := newTestRedisRegistry(t)

	at := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	require.NoError(t, reg.Put(ctx, Registration{Token: "daily", FireAt: at, Precision: PrecisionAlarmClock}))
	require.NoError(t, reg.Put(ctx, Registration{Token: "other", FireAt: at.Add(-time.Hour), Precision: PrecisionInexact}))

	ok, err := reg.Take(ctx, "daily", at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.Take(ctx, "daily", at)
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "other", all[0].Token)

	require.NoError(t, reg.Remove(ctx, "missing"))
	require.NoError(t, reg.Clear(ctx))
	all, err = reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
