package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no extra payload. They are
// matched with errors.Is by the interface layer.
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartLineExists   = errors.New("cart line already exists")
	ErrEmptyCart        = errors.New("order needs at least one line and a delivery address")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrAlreadyCancelled = errors.New("order already cancelled")
	ErrAlreadyReturned  = errors.New("order already returned")
)

// SkuNotFoundError identifies the missing variant so the caller can point
// at the offending checkout line.
type SkuNotFoundError struct {
	SkuID uint
}

func (e *SkuNotFoundError) Error() string {
	return fmt.Sprintf("sku %d not found", e.SkuID)
}

// InsufficientStockError is returned when a guarded decrement (or a cart
// mutation validating against live stock) would drive a SKU negative.
type InsufficientStockError struct {
	SkuID     uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %d: requested %d, available %d",
		e.SkuID, e.Requested, e.Available)
}

// InvalidTransitionError reports an order-status edge outside the lifecycle
// graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %q to %q", e.From, e.To)
}

// IsCallerError reports whether err is correctable by the caller, as
// opposed to an infrastructure failure. The HTTP layer uses it to pick
// between 4xx and 5xx.
func IsCallerError(err error) bool {
	var (
		skuErr   *SkuNotFoundError
		stockErr *InsufficientStockError
		transErr *InvalidTransitionError
	)
	switch {
	case errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrCartItemNotFound),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyReturned):
		return true
	case errors.As(err, &skuErr), errors.As(err, &stockErr), errors.As(err, &transErr):
		return true
	}
	return false
}
