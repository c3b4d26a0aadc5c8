package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

type notifierFunc func(context.Context, domain.Confirmation) error

func (f notifierFunc) Notify(ctx context.Context, c domain.Confirmation) error { return f(ctx, c) }

func TestLogNotifier_WritesEntry(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(log.NewEntry(logger))

	err := n.Notify(context.Background(), domain.Confirmation{
		OrderID:    "ORD-1",
		GrandTotal: decimal.NewFromInt(170),
	})
	require.NoError(t, err)
	require.Len(t, hook.Entries, 1)
	require.Equal(t, "ORD-1", hook.LastEntry().Data["order_id"])
	require.Equal(t, "170", hook.LastEntry().Data["grand_total"])
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	errFirst := errors.New("smtp down")
	errThird := errors.New("broker down")
	calls := 0

	m := Multi{
		notifierFunc(func(context.Context, domain.Confirmation) error { calls++; return errFirst }),
		nil,
		notifierFunc(func(context.Context, domain.Confirmation) error { calls++; return nil }),
		notifierFunc(func(context.Context, domain.Confirmation) error { calls++; return errThird }),
	}

	err := m.Notify(context.Background(), domain.Confirmation{OrderID: "ORD-1"})
	require.Equal(t, 3, calls)
	require.ErrorIs(t, err, errFirst)
	require.ErrorIs(t, err, errThird)
}

func TestMulti_Empty(t *testing.T) {
	require.NoError(t, Multi{}.Notify(context.Background(), domain.Confirmation{}))
}
