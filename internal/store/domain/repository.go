package domain

import "context"

// CustomerRepository reads customer identity for ownership checks and
// post-commit notifications.
type CustomerRepository interface {
	Find(ctx context.Context, id uint) (*Customer, error)
}

// ProductRepository resolves product names for order-line snapshots and
// tracks the cumulative sold counter.
type ProductRepository interface {
	Find(ctx context.Context, id uint) (*Product, error)
	IncrementSold(ctx context.Context, id uint, n int) error
}

// SkuRepository is the inventory surface. FindForUpdate must acquire a
// row-level lock (or the store's equivalent) so that concurrent decrements
// on the same SKU serialize instead of interleaving.
type SkuRepository interface {
	Find(ctx context.Context, id uint) (*Sku, error)
	FindForUpdate(ctx context.Context, id uint) (*Sku, error)
	UpdateQuantity(ctx context.Context, id uint, quantity int) error
}

// CartRepository persists cart headers and lines. FindCart and Line
// lookups that miss return ErrCartItemNotFound.
type CartRepository interface {
	EnsureCart(ctx context.Context, customerID uint) (*Cart, error)
	FindCart(ctx context.Context, customerID uint) (*Cart, error)
	Line(ctx context.Context, cartID, skuID uint) (*CartLine, error)
	Lines(ctx context.Context, cartID uint) ([]CartLine, error)
	SaveLine(ctx context.Context, line *CartLine) error
	DeleteLine(ctx context.Context, cartID, skuID uint) error
	DeleteLines(ctx context.Context, cartID uint, skuIDs []uint) error
}

// OrderRepository persists order headers and their immutable line
// snapshots. FindForUpdate locks the single order row for a status change.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	CreateLines(ctx context.Context, lines []OrderLine) error
	Find(ctx context.Context, id uint) (*Order, error)
	FindForUpdate(ctx context.Context, id uint) (*Order, error)
	FindByCustomer(ctx context.Context, customerID uint) ([]Order, error)
	Lines(ctx context.Context, orderID uint) ([]OrderLine, error)
	Save(ctx context.Context, order *Order) error
}

// Repos bundles the repositories bound to one unit of work. All mutations
// made through it share the same commit/rollback fate.
type Repos interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Skus() SkuRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// Store opens units of work against the underlying data store. WithinTx
// runs fn inside one atomic transaction: any error (or panic) rolls back
// every write fn performed, a nil return commits them all.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
