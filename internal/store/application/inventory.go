package application

import (
	"context"

	"github.com/pkg/errors"

	"shopcore/internal/store/domain"
)

// InventoryLedger performs guarded stock adjustments. Both operations run
// against the repositories of the caller's unit of work and are never
// committed on their own: the enclosing transaction decides their fate.
type InventoryLedger struct{}

func NewInventoryLedger() *InventoryLedger { return &InventoryLedger{} }

// Decrement locks the SKU row, verifies the remaining stock and writes the
// reduced quantity. Concurrent decrements on the same SKU serialize on the
// row lock, so two checkouts can never both succeed past the limit.
func (l *InventoryLedger) Decrement(ctx context.Context, r domain.Repos, skuID uint, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	sku, err := r.Skus().FindForUpdate(ctx, skuID)
	if err != nil {
		return err
	}
	if sku.Quantity-qty < 0 {
		return &domain.InsufficientStockError{
			SkuID:     skuID,
			Requested: qty,
			Available: sku.Quantity,
		}
	}
	if err := r.Skus().UpdateQuantity(ctx, skuID, sku.Quantity-qty); err != nil {
		return errors.Wrapf(err, "decrement sku %d", skuID)
	}
	return nil
}

// Increment is the compensating restock used by cancel/return. It always
// succeeds for a known SKU.
func (l *InventoryLedger) Increment(ctx context.Context, r domain.Repos, skuID uint, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	sku, err := r.Skus().FindForUpdate(ctx, skuID)
	if err != nil {
		return err
	}
	if err := r.Skus().UpdateQuantity(ctx, skuID, sku.Quantity+qty); err != nil {
		return errors.Wrapf(err, "restock sku %d", skuID)
	}
	return nil
}
