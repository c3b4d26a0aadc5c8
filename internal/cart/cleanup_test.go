package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/metrics"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
)

type batchExpirer struct {
	batches []int
	calls   int
	err     error
}

func (e *batchExpirer) DeleteExpired(_ context.Context, _ time.Time, limit int) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if e.calls >= len(e.batches) {
		return 0, nil
	}
	n := e.batches[e.calls]
	e.calls++
	if n > limit {
		n = limit
	}
	return n, nil
}

func TestCleanupWorker_EvictsIdleSessionsAndExpiresCarts(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewCartStorage()
	sessions := NewSessions(storage, nil)

	store, err := sessions.Get(ctx, "sess-old")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, "zx9", "ZX9", priceZX9, 1, ""))

	reg := prometheus.NewRegistry()
	m := metrics.NewCheckoutMetricsWithRegisterer(reg)
	w := NewCleanupWorker(sessions, storage,
		WithCleanupMetrics(m),
		WithSessionIdle(time.Hour),
		WithCartTTL(24*time.Hour),
	)
	w.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }

	evicted, expired, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, expired)
	require.Zero(t, sessions.Len())
	require.Zero(t, storage.Sessions())

	reopened, err := sessions.Get(ctx, "sess-old")
	require.NoError(t, err)
	require.True(t, reopened.Snapshot().IsEmpty(), "expired cart starts empty")

	w.cleanup(ctx)
	count, err := testutil.GatherAndCount(reg, "storefront_cart_cleanup_runs_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCleanupWorker_KeepsActiveSessions(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewCartStorage()
	sessions := NewSessions(storage, nil)

	store, err := sessions.Get(ctx, "sess-active")
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))

	w := NewCleanupWorker(sessions, storage, WithSessionIdle(time.Hour), WithCartTTL(24*time.Hour))

	evicted, expired, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, evicted)
	require.Zero(t, expired)

	again, err := sessions.Get(ctx, "sess-active")
	require.NoError(t, err)
	require.Same(t, store, again)
}

func TestCleanupWorker_DeleteExpiredInBatches(t *testing.T) {
	expirer := &batchExpirer{batches: []int{2, 2, 1}}
	w := NewCleanupWorker(nil, expirer)
	w.batchSize = 2

	deleted, err := w.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 5, deleted)
	require.Equal(t, 3, expirer.calls)
}

func TestCleanupWorker_Errors(t *testing.T) {
	errDown := errors.New("storage down")
	w := NewCleanupWorker(nil, &batchExpirer{err: errDown}, WithCartTTL(time.Hour))

	_, _, err := w.RunOnce(context.Background())
	require.ErrorIs(t, err, errDown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.DeleteExpired(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanupWorker_WithoutTTLOnlyEvicts(t *testing.T) {
	expirer := &batchExpirer{batches: []int{10}}
	w := NewCleanupWorker(NewSessions(memory.NewCartStorage(), nil), expirer)

	_, expired, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, expired)
	require.Zero(t, expirer.calls)
}

func TestCleanupWorker_RunStopsOnCancel(t *testing.T) {
	w := NewCleanupWorker(NewSessions(memory.NewCartStorage(), nil), nil, WithCleanupInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
