package evalcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-evalboard/internal/eval"
)

func TestKeyDropsMoveCounters(t *testing.T) {
	a := Key("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", "movetime=100")
	b := Key("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 7 30", "movetime=100")
	require.Equal(t, a, b)
	require.NotEqual(t, a, Key("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", "depth=20"))
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, 0)
	require.NoError(t, m.Put(ctx, "a", eval.Score(1)))
	require.NoError(t, m.Put(ctx, "b", eval.Score(2)))

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Put(ctx, "c", eval.MateIn(3)))
	_, ok, _ = m.Get(ctx, "b")
	require.False(t, ok, "b should have been evicted")

	got, ok, _ := m.Get(ctx, "c")
	require.True(t, ok)
	require.Equal(t, eval.MateIn(3), got)
	require.Equal(t, 2, m.Len())
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, 50*time.Millisecond)

	require.NoError(t, m.Put(ctx, "k", eval.Score(-80)))
	got, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, eval.Score(-80), got)

	require.Eventually(t, func() bool {
		_, ok, _ := m.Get(ctx, "k")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMemoryWithoutTTLKeepsEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)
	require.NoError(t, m.Put(ctx, "k", eval.MateIn(-2)))
	time.Sleep(20 * time.Millisecond)
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, eval.MateIn(-2), got)
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var s Store = Nop{}
	require.NoError(t, s.Put(ctx, "k", eval.Score(1)))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
