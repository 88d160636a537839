package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopcore/internal/pkg/cache"
	"shopcore/internal/store/domain"
)

const cartBadgeTTL = 5 * time.Minute

// CartService owns the per-customer cart: stock-aware line mutations and
// the annotated read used by the storefront. Adding to the cart never
// reserves inventory; the single authoritative check-and-decrement happens
// at order creation.
type CartService struct {
	store  domain.Store
	badge  *cache.Client
	tracer trace.Tracer
}

func NewCartService(store domain.Store, badge *cache.Client, tracer trace.Tracer) *CartService {
	return &CartService{store: store, badge: badge, tracer: tracer}
}

func cartBadgeKey(customerID uint) string {
	return fmt.Sprintf("cart:badge:%d", customerID)
}

// AddItem puts qty units of a SKU into the customer's cart, creating the
// cart and line as needed. An existing line is incremented. The resulting
// quantity may not exceed the SKU's current stock.
func (s *CartService) AddItem(ctx context.Context, customerID, skuID uint, qty int) error {
	ctx, span := s.tracer.Start(ctx, "cart.AddItem")
	defer span.End()
	span.SetAttributes(attribute.Int("sku.id", int(skuID)), attribute.Int("cart.qty", qty))

	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		sku, err := r.Skus().Find(ctx, skuID)
		if err != nil {
			return err
		}
		cart, err := r.Carts().EnsureCart(ctx, customerID)
		if err != nil {
			return err
		}
		newQty := qty
		line, err := r.Carts().Line(ctx, cart.ID, skuID)
		switch {
		case err == nil:
			newQty += line.Quantity
		case errors.Is(err, domain.ErrCartItemNotFound):
			line = &domain.CartLine{CartID: cart.ID, SkuID: skuID}
		default:
			return err
		}
		if newQty > sku.Quantity {
			return &domain.InsufficientStockError{
				SkuID:     skuID,
				Requested: newQty,
				Available: sku.Quantity,
			}
		}
		line.Quantity = newQty
		line.Price = sku.Price * int64(newQty)
		return r.Carts().SaveLine(ctx, line)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add to cart failed")
		return err
	}
	s.badge.Delete(ctx, cartBadgeKey(customerID))
	return nil
}

// UpdateQuantity sets the line to qty; qty below one removes the line
// entirely. The new quantity may not exceed current stock.
func (s *CartService) UpdateQuantity(ctx context.Context, customerID, skuID uint, qty int) error {
	ctx, span := s.tracer.Start(ctx, "cart.UpdateQuantity")
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		cart, err := r.Carts().FindCart(ctx, customerID)
		if err != nil {
			return err
		}
		line, err := r.Carts().Line(ctx, cart.ID, skuID)
		if err != nil {
			return err
		}
		if qty < 1 {
			return r.Carts().DeleteLine(ctx, cart.ID, skuID)
		}
		sku, err := r.Skus().Find(ctx, skuID)
		if err != nil {
			return err
		}
		if qty > sku.Quantity {
			return &domain.InsufficientStockError{
				SkuID:     skuID,
				Requested: qty,
				Available: sku.Quantity,
			}
		}
		line.Quantity = qty
		line.Price = sku.Price * int64(qty)
		return r.Carts().SaveLine(ctx, line)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update cart quantity failed")
		return err
	}
	s.badge.Delete(ctx, cartBadgeKey(customerID))
	return nil
}

// RemoveItem deletes the line for the SKU from the customer's cart.
func (s *CartService) RemoveItem(ctx context.Context, customerID, skuID uint) error {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveItem")
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		cart, err := r.Carts().FindCart(ctx, customerID)
		if err != nil {
			return err
		}
		if _, err := r.Carts().Line(ctx, cart.ID, skuID); err != nil {
			return err
		}
		return r.Carts().DeleteLine(ctx, cart.ID, skuID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove cart item failed")
		return err
	}
	s.badge.Delete(ctx, cartBadgeKey(customerID))
	return nil
}

// GetItems returns the customer's cart annotated with an in-stock flag per
// line. Customers without a cart get an empty view, never an error. The
// total counts in-stock lines only.
func (s *CartService) GetItems(ctx context.Context, customerID uint) (*CartView, error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetItems")
	defer span.End()

	view := &CartView{Items: []CartItemView{}}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		cart, err := r.Carts().FindCart(ctx, customerID)
		if errors.Is(err, domain.ErrCartItemNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		lines, err := r.Carts().Lines(ctx, cart.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			sku, err := r.Skus().Find(ctx, line.SkuID)
			if err != nil {
				return err
			}
			product, err := r.Products().Find(ctx, sku.ProductID)
			if err != nil {
				return err
			}
			item := CartItemView{
				SkuID:     sku.ID,
				ProductID: sku.ProductID,
				Name:      product.Name,
				Size:      sku.Size,
				Color:     sku.Color,
				UnitPrice: sku.Price,
				Quantity:  line.Quantity,
				Price:     line.Price,
				InStock:   line.Quantity <= sku.Quantity,
			}
			if item.InStock {
				view.TotalQuantity += line.Quantity
			}
			view.Items = append(view.Items, item)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get cart items failed")
		return nil, err
	}
	s.badge.SetInt64(ctx, cartBadgeKey(customerID), int64(view.TotalQuantity), cartBadgeTTL)
	return view, nil
}

// TotalQuantity is the cheap badge count shown next to the cart icon. It
// prefers the Redis cache and falls back to a full read.
func (s *CartService) TotalQuantity(ctx context.Context, customerID uint) (int, error) {
	if v, ok := s.badge.GetInt64(ctx, cartBadgeKey(customerID)); ok {
		return int(v), nil
	}
	view, err := s.GetItems(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return view.TotalQuantity, nil
}
