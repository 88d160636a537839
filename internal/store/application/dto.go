package application

import "shopcore/internal/store/domain"

// CheckoutLine is one requested SKU at checkout. Quantity is what the
// customer is buying; the authoritative stock check happens inside the
// order transaction, not here.
type CheckoutLine struct {
	SkuID    uint `json:"skuId"`
	Quantity int  `json:"quantity"`
}

// CreateOrderRequest carries everything the checkout endpoint collected.
// Total arrives pre-computed because voucher/discount math lives outside
// this service.
type CreateOrderRequest struct {
	CustomerID uint           `json:"customerId"`
	Lines      []CheckoutLine `json:"lines"`
	Address    string         `json:"address"`
	PaymentID  uint           `json:"paymentId"`
	CouponID   *uint          `json:"couponId,omitempty"`
	Total      int64          `json:"total"`
}

// CreateOrderResponse reports the committed order.
type CreateOrderResponse struct {
	OrderID uint          `json:"orderId"`
	Status  domain.Status `json:"status"`
}

// CartItemView is one cart line annotated with live stock information.
type CartItemView struct {
	SkuID     uint   `json:"skuId"`
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	InStock   bool   `json:"isInStock"`
}

// CartView is the whole cart. TotalQuantity counts in-stock lines only.
type CartView struct {
	Items         []CartItemView `json:"items"`
	TotalQuantity int            `json:"totalQuantity"`
}

// OrderView is an order header plus its immutable line snapshots.
type OrderView struct {
	Order domain.Order       `json:"order"`
	Lines []domain.OrderLine `json:"lines"`
}
