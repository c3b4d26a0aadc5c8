package cart

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
)

var (
	priceXX99 = decimal.NewFromInt(2999)
	priceYX1  = decimal.NewFromInt(599)
	priceZX9  = decimal.NewFromInt(4500)
)

// flakyStorage оборачивает memory.CartStorage и может отказывать по требованию.
type flakyStorage struct {
	*memory.CartStorage
	mu      sync.Mutex
	failErr error
}

func (s *flakyStorage) fail(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *flakyStorage) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failErr
}

func (s *flakyStorage) Load(ctx context.Context, id string) ([]domain.LineItem, bool, error) {
	if err := s.err(); err != nil {
		return nil, false, err
	}
	return s.CartStorage.Load(ctx, id)
}

func (s *flakyStorage) Save(ctx context.Context, id string, items []domain.LineItem) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.CartStorage.Save(ctx, id, items)
}

func (s *flakyStorage) Delete(ctx context.Context, id string) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.CartStorage.Delete(ctx, id)
}

func openStore(t *testing.T) (*Store, *flakyStorage) {
	t.Helper()
	storage := &flakyStorage{CartStorage: memory.NewCartStorage()}
	store, err := Open(context.Background(), "sess-1", storage)
	require.NoError(t, err)
	return store, storage
}

func TestStore_AddItemMergesByProduct(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 1, "cart/xx99.jpg"))
	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 2, "cart/yx1.jpg"))
	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 2, "cart/xx99.jpg"))

	snap := store.Snapshot()
	require.Len(t, snap.Items, 2)
	require.Equal(t, "xx99", snap.Items[0].ProductID, "merge must keep original position")
	require.Equal(t, 3, snap.Items[0].Quantity)
	require.Equal(t, 5, snap.ItemCount)
	require.True(t, snap.Subtotal.Equal(decimal.NewFromInt(3*2999+2*599)))
}

func TestStore_AddItemValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	err := store.AddItem(ctx, "", "x", decimal.NewFromInt(-1), 0, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.HasField(domain.FieldProductID))
	require.True(t, verr.HasField(domain.FieldQuantity))
	require.True(t, verr.HasField("unitPrice"))
	require.True(t, store.Snapshot().IsEmpty())
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 1, ""))
	require.NoError(t, store.AddItem(ctx, "zx9", "ZX9", priceZX9, 1, ""))

	require.NoError(t, store.UpdateQuantity(ctx, "zx9", 4))
	require.Equal(t, 4, store.Snapshot().Items[1].Quantity)

	// отсутствующий товар игнорируется
	require.NoError(t, store.UpdateQuantity(ctx, "missing", 3))
	require.Len(t, store.Snapshot().Items, 2)

	require.NoError(t, store.UpdateQuantity(ctx, "xx99", 0))
	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, "zx9", snap.Items[0].ProductID)

	require.NoError(t, store.UpdateQuantity(ctx, "zx9", -1))
	require.True(t, store.Snapshot().IsEmpty())
}

func TestStore_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store, storage := openStore(t)
	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 1, ""))
	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))

	require.NoError(t, store.RemoveItem(ctx, "missing"))
	require.NoError(t, store.RemoveItem(ctx, "xx99"))
	require.Len(t, store.Snapshot().Items, 1)

	require.NoError(t, store.Clear(ctx))
	require.True(t, store.Snapshot().IsEmpty())
	require.NoError(t, store.Clear(ctx), "clear must be idempotent")

	_, found, err := storage.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.False(t, found, "cleared cart must be removed from storage")
}

func TestStore_StorageFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store, storage := openStore(t)
	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 1, ""))

	boom := errors.New("redis: connection refused")
	storage.fail(boom)

	require.ErrorIs(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 5, ""), boom)
	require.ErrorIs(t, store.UpdateQuantity(ctx, "xx99", 9), boom)
	require.ErrorIs(t, store.RemoveItem(ctx, "xx99"), boom)
	require.ErrorIs(t, store.Clear(ctx), boom)

	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, 1, snap.Items[0].Quantity)
}

func TestOpen_RestoresAndSanitizes(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewCartStorage()
	require.NoError(t, storage.Save(ctx, "sess-2", []domain.LineItem{
		{ProductID: "yx1", UnitPrice: priceYX1, Quantity: 1},
		{ProductID: "", UnitPrice: priceYX1, Quantity: 1},
		{ProductID: "zx9", UnitPrice: priceZX9, Quantity: 0},
		{ProductID: "yx1", UnitPrice: priceYX1, Quantity: 2},
	}))

	store, err := Open(ctx, "sess-2", storage)
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, 3, snap.Items[0].Quantity)
}

func TestStore_QuantityUpperBound(t *testing.T) {
	ctx := context.Background()
	store, storage := openStore(t)

	require.NoError(t, store.AddItem(ctx, "xx99", "XX99", priceXX99, MaxQuantity-1, ""))

	tests := []struct {
		name string
		op   func() error
	}{
		{name: "merge past bound", op: func() error { return store.AddItem(ctx, "xx99", "XX99", priceXX99, 2, "") }},
		{name: "max int merge", op: func() error { return store.AddItem(ctx, "xx99", "XX99", priceXX99, math.MaxInt, "") }},
		{name: "new line past bound", op: func() error { return store.AddItem(ctx, "yx1", "YX1", priceYX1, MaxQuantity+1, "") }},
		{name: "update past bound", op: func() error { return store.UpdateQuantity(ctx, "xx99", MaxQuantity+1) }},
		{name: "update max int", op: func() error { return store.UpdateQuantity(ctx, "xx99", math.MaxInt) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.True(t, verr.HasField(domain.FieldQuantity))

			snap := store.Snapshot()
			require.Len(t, snap.Items, 1)
			require.Equal(t, MaxQuantity-1, snap.Items[0].Quantity)
			require.Equal(t, MaxQuantity-1, snap.ItemCount)
			require.True(t, snap.Subtotal.IsPositive())
		})
	}

	require.NoError(t, store.AddItem(ctx, "xx99", "XX99", priceXX99, 1, ""), "merge up to the bound is allowed")
	require.Equal(t, MaxQuantity, store.Snapshot().ItemCount)

	stored, _, err := storage.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, MaxQuantity, stored[0].Quantity)
}

func TestOpen_CapsStoredQuantity(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewCartStorage()
	require.NoError(t, storage.Save(ctx, "sess-3", []domain.LineItem{
		{ProductID: "yx1", UnitPrice: priceYX1, Quantity: math.MaxInt},
		{ProductID: "yx1", UnitPrice: priceYX1, Quantity: 5},
	}))

	store, err := Open(ctx, "sess-3", storage)
	require.NoError(t, err)
	require.Equal(t, MaxQuantity, store.Snapshot().ItemCount)
}

func TestStore_RemoveOrdered(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)
	require.NoError(t, store.AddItem(ctx, "xx99", "XX99", priceXX99, 1, ""))
	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 2, ""))
	ordered := store.Snapshot().Items

	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))
	require.NoError(t, store.AddItem(ctx, "zx9", "ZX9", priceZX9, 1, ""))

	require.NoError(t, store.RemoveOrdered(ctx, ordered))

	snap := store.Snapshot()
	require.Len(t, snap.Items, 2)
	require.Equal(t, "yx1", snap.Items[0].ProductID)
	require.Equal(t, 1, snap.Items[0].Quantity)
	require.Equal(t, "zx9", snap.Items[1].ProductID)
	require.True(t, snap.Subtotal.Equal(priceYX1.Add(priceZX9)))

	require.NoError(t, store.RemoveOrdered(ctx, snap.Items))
	require.True(t, store.Snapshot().IsEmpty())
	require.NoError(t, store.RemoveOrdered(ctx, ordered), "removing from an empty cart is a no-op")
}

func TestOpen_LoadError(t *testing.T) {
	storage := &flakyStorage{CartStorage: memory.NewCartStorage()}
	storage.fail(errors.New("timeout"))

	_, err := Open(context.Background(), "sess-3", storage)
	require.ErrorContains(t, err, "load cart sess-3")
}

func TestStore_Subscribers(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	var changes []Change
	unsubscribe := store.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, store.AddItem(ctx, "xx99", "XX99 MK II", priceXX99, 1, ""))
	require.NoError(t, store.UpdateQuantity(ctx, "xx99", 1)) // без изменений
	require.NoError(t, store.UpdateQuantity(ctx, "xx99", 2))
	require.NoError(t, store.Clear(ctx))

	require.Len(t, changes, 3)
	require.Equal(t, OpAdd, changes[0].Op)
	require.Equal(t, OpUpdate, changes[1].Op)
	require.Equal(t, 2, changes[1].Snapshot.ItemCount)
	require.Equal(t, OpClear, changes[2].Op)
	require.Equal(t, "sess-1", changes[2].SessionID)

	unsubscribe()
	require.NoError(t, store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, ""))
	require.Len(t, changes, 3)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store, _ := openStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddItem(ctx, "yx1", "YX1", priceYX1, 1, "")
		}()
	}
	wg.Wait()

	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	require.Equal(t, 50, snap.Items[0].Quantity)
}
