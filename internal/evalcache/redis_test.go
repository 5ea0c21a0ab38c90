package evalcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-evalboard/internal/eval"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := DialRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), ttl)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisRoundTrip(t *testing.T) {
	store, _ := newTestRedis(t, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "score", eval.Score(-125)))
	require.NoError(t, store.Put(ctx, "mate", eval.MateIn(-4)))

	got, ok, err := store.Get(ctx, "score")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, eval.Score(-125), got)

	got, ok, err = store.Get(ctx, "mate")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, eval.MateIn(-4), got)
}

func TestRedisEntriesExpire(t *testing.T) {
	store, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", eval.Score(5)))
	require.True(t, mr.Exists(keyPrefix+"k"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCorruptPayload(t *testing.T) {
	store, mr := newTestRedis(t, time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	_, _, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
}

func TestDialRedisRejectsBadURL(t *testing.T) {
	_, err := DialRedis(context.Background(), "http://localhost", time.Minute)
	require.Error(t, err)
	_, err = DialRedis(context.Background(), "", time.Minute)
	require.Error(t, err)
}
