package infrastructure

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/store/domain"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	store.SeedSku(domain.Sku{ID: 1, ProductID: 1, Quantity: 5})

	err := store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		require.NoError(t, r.Skus().UpdateQuantity(ctx, 1, 2))
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	sku, ok := store.Sku(1)
	require.True(t, ok)
	assert.Equal(t, 5, sku.Quantity)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	store := NewMemoryStore()
	store.SeedSku(domain.Sku{ID: 1, ProductID: 1, Quantity: 5})

	err := store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		if err := r.Skus().UpdateQuantity(ctx, 1, 0); err != nil {
			return err
		}
		panic("midway")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "midway")

	sku, _ := store.Sku(1)
	assert.Equal(t, 5, sku.Quantity)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	store.SeedSku(domain.Sku{ID: 1, ProductID: 1, Quantity: 5})

	err := store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		return r.Skus().UpdateQuantity(ctx, 1, 3)
	})
	require.NoError(t, err)

	sku, _ := store.Sku(1)
	assert.Equal(t, 3, sku.Quantity)
}

func TestEnsureCartIsIdempotent(t *testing.T) {
	store := NewMemoryStore()

	var first, second *domain.Cart
	err := store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		var err error
		if first, err = r.Carts().EnsureCart(ctx, 7); err != nil {
			return err
		}
		second, err = r.Carts().EnsureCart(ctx, 7)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, uint(7), first.CustomerID)
}

func TestDeleteLinesRemovesOnlyRequestedSkus(t *testing.T) {
	store := NewMemoryStore()

	err := store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		cart, err := r.Carts().EnsureCart(ctx, 1)
		if err != nil {
			return err
		}
		for _, skuID := range []uint{10, 11, 12} {
			if err := r.Carts().SaveLine(ctx, &domain.CartLine{CartID: cart.ID, SkuID: skuID, Quantity: 1}); err != nil {
				return err
			}
		}
		if err := r.Carts().DeleteLines(ctx, cart.ID, []uint{10, 12}); err != nil {
			return err
		}
		lines, err := r.Carts().Lines(ctx, cart.ID)
		if err != nil {
			return err
		}
		require.Len(t, lines, 1)
		assert.Equal(t, uint(11), lines[0].SkuID)
		return nil
	})
	require.NoError(t, err)
}
