package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
)

func TestSessions_GetReturnsSameStore(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(memory.NewCartStorage(), nil)

	a, err := sessions.Get(ctx, "sess-a")
	require.NoError(t, err)
	again, err := sessions.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.Same(t, a, again)

	b, err := sessions.Get(ctx, "sess-b")
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, 2, sessions.Len())

	_, err = sessions.Get(ctx, "")
	require.ErrorIs(t, err, ErrSessionRequired)
}

func TestSessions_RestoresPersistedCart(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewCartStorage()

	first := NewSessions(storage, nil)
	store, err := first.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, "zx9", "ZX9", priceZX9, 2, ""))

	// новый процесс с тем же хранилищем видит сохранённую корзину
	second := NewSessions(storage, nil)
	restored, err := second.Get(ctx, "sess-a")
	require.NoError(t, err)
	require.Equal(t, 2, restored.Snapshot().ItemCount)
}

func TestSessions_HooksSubscribeEveryStore(t *testing.T) {
	ctx := context.Background()
	var ops []Op
	sessions := NewSessions(memory.NewCartStorage(), nil, func(c Change) { ops = append(ops, c.Op) })

	for _, id := range []string{"sess-a", "sess-b"} {
		store, err := sessions.Get(ctx, id)
		require.NoError(t, err)
		require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))
	}
	require.Equal(t, []Op{OpAdd, OpAdd}, ops)
}

func TestSessions_EvictIdle(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(memory.NewCartStorage(), nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }
	idle, err := sessions.Get(ctx, "sess-idle")
	require.NoError(t, err)
	require.NoError(t, idle.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))

	now = now.Add(time.Hour)
	_, err = sessions.Get(ctx, "sess-active")
	require.NoError(t, err)

	require.Equal(t, 1, sessions.EvictIdle(now.Add(-30*time.Minute)))
	require.Equal(t, 1, sessions.Len())

	reloaded, err := sessions.Get(ctx, "sess-idle")
	require.NoError(t, err)
	require.NotSame(t, idle, reloaded)
	require.Equal(t, 1, reloaded.Snapshot().ItemCount, "evicted cart is restored from storage")
}
