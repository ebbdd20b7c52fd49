package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisSessionStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionStore(client, time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", testRecord()))

	rec, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AT1", rec.AccessToken)
	assert.Equal(t, "RT1", rec.RefreshToken)
	assert.JSONEq(t, `{"version":1,"id":7,"name":"Kim","role":"ADMIN"}`, string(rec.Profile))
}

func TestRedisStoreMissing(t *testing.T) {
	store := newRedisStore(t)

	rec, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", testRecord()))
	require.NoError(t, store.Delete(ctx, "sid-1"))
	require.NoError(t, store.Delete(ctx, "sid-1"))

	rec, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStoreOverwrite(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", testRecord()))

	second := testRecord()
	second.AccessToken = "AT2"
	second.RefreshToken = "RT2"
	require.NoError(t, store.Save(ctx, "sid-1", second))

	rec, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "AT2", rec.AccessToken)
	assert.Equal(t, "RT2", rec.RefreshToken)
}
