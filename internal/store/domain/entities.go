package domain

import "time"

// Customer is the minimal profile the order engine needs: identity for
// ownership checks and an address to deliver confirmations to.
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	Email     string `gorm:"size:255;uniqueIndex"`
}

func (Customer) TableName() string { return "customers" }

// Product groups its purchasable SKUs and keeps the cumulative sold counter.
type Product struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `gorm:"size:255;not null"`
	Sold   int64  `gorm:"not null;default:0"`
	Status int    `gorm:"not null;default:1"`
}

func (Product) TableName() string { return "products" }

// Sku is a purchasable variant of a product. Quantity is the live stock
// counter and must never go negative.
type Sku struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"index;not null;uniqueIndex:idx_sku_variant"`
	Size      string `gorm:"size:20;uniqueIndex:idx_sku_variant"`
	Color     string `gorm:"size:40;uniqueIndex:idx_sku_variant"`
	Price     int64  `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
}

func (Sku) TableName() string { return "product_skus" }

// Cart is the per-customer cart header. Lines hang off it.
type Cart struct {
	ID         uint `gorm:"primaryKey"`
	CustomerID uint `gorm:"uniqueIndex;not null"`
}

func (Cart) TableName() string { return "carts" }

// CartLine holds one SKU selection. Price is a snapshot of
// unit price * quantity taken at the last mutation, not a live lookup.
type CartLine struct {
	ID        uint  `gorm:"primaryKey"`
	CartID    uint  `gorm:"not null;uniqueIndex:idx_cart_sku"`
	SkuID     uint  `gorm:"not null;uniqueIndex:idx_cart_sku"`
	Quantity  int   `gorm:"not null"`
	Price     int64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CartLine) TableName() string { return "cart_lines" }

// Order is created exactly once with StatusPendingConfirmation and is never
// deleted; every later change is a status transition plus a timestamp stamp.
type Order struct {
	ID           uint   `gorm:"primaryKey"`
	CustomerID   uint   `gorm:"index;not null"`
	Address      string `gorm:"size:500;not null"`
	PaymentID    uint
	CouponID     *uint
	Status       Status `gorm:"size:40;index;not null"`
	CancelReason string `gorm:"size:500"`
	ShippingFee  int64  `gorm:"not null"`
	Total        int64  `gorm:"not null"`
	CreatedAt    time.Time
	ShippingAt   *time.Time
	CompletedAt  *time.Time
	CanceledAt   *time.Time
	ReturnedAt   *time.Time
	DeliveryAt   *time.Time

	Lines []OrderLine `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

// Transition moves the order to the given status and stamps the single
// timestamp field mapped to it. Callers must have validated reachability.
func (o *Order) Transition(to Status, now time.Time) {
	o.Status = to
	switch to.TimestampColumn() {
	case "created_at":
		o.CreatedAt = now
	case "shipping_at":
		o.ShippingAt = &now
	case "completed_at":
		o.CompletedAt = &now
	case "canceled_at":
		o.CanceledAt = &now
	case "returned_at":
		o.ReturnedAt = &now
	default:
		o.DeliveryAt = &now
	}
}

// OrderLine is an immutable snapshot of a SKU taken at order creation.
// It must never be mutated after insert.
type OrderLine struct {
	ID       uint   `gorm:"primaryKey"`
	OrderID  uint   `gorm:"index;not null"`
	SkuID    uint   `gorm:"index;not null"`
	Name     string `gorm:"size:255;not null"`
	Quantity int    `gorm:"not null"`
	Price    int64  `gorm:"not null"`
}

func (OrderLine) TableName() string { return "order_lines" }
