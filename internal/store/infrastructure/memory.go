package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"shopcore/internal/store/domain"
)

// MemoryStore implements domain.Store over plain maps. A store-wide mutex
// serializes units of work and a snapshot of all tables taken at
// transaction start is restored on error or panic, which gives the same
// all-or-nothing guarantee the database transaction provides. Used by the
// test suite and the dev backend.
type MemoryStore struct {
	mu sync.Mutex
	t  tables
}

type tables struct {
	customers  map[uint]domain.Customer
	products   map[uint]domain.Product
	skus       map[uint]domain.Sku
	carts      map[uint]domain.Cart // keyed by customer ID
	cartLines  map[uint][]domain.CartLine
	orders     map[uint]domain.Order
	orderLines map[uint][]domain.OrderLine
	nextCartID uint
	nextLineID uint
	nextOrder  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{t: tables{
		customers:  map[uint]domain.Customer{},
		products:   map[uint]domain.Product{},
		skus:       map[uint]domain.Sku{},
		carts:      map[uint]domain.Cart{},
		cartLines:  map[uint][]domain.CartLine{},
		orders:     map[uint]domain.Order{},
		orderLines: map[uint][]domain.OrderLine{},
	}}
}

// Seed helpers used by tests and the dev backend.

func (s *MemoryStore) SeedCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.customers[c.ID] = c
}

func (s *MemoryStore) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.products[p.ID] = p
}

func (s *MemoryStore) SeedSku(sku domain.Sku) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.skus[sku.ID] = sku
}

// Sku returns the current state of a SKU, for assertions.
func (s *MemoryStore) Sku(id uint) (domain.Sku, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku, ok := s.t.skus[id]
	return sku, ok
}

// Order returns the current state of an order, for assertions.
func (s *MemoryStore) Order(id uint) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.t.orders[id]
	return o, ok
}

// Product returns the current state of a product, for assertions.
func (s *MemoryStore) Product(id uint) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.t.products[id]
	return p, ok
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	defer func() {
		if rec := recover(); rec != nil {
			s.t = snapshot
			err = errors.Errorf("transaction panicked: %v", rec)
		} else if err != nil {
			s.t = snapshot
		}
	}()
	return fn(ctx, &memRepos{t: &s.t})
}

func (t tables) clone() tables {
	c := tables{
		customers:  make(map[uint]domain.Customer, len(t.customers)),
		products:   make(map[uint]domain.Product, len(t.products)),
		skus:       make(map[uint]domain.Sku, len(t.skus)),
		carts:      make(map[uint]domain.Cart, len(t.carts)),
		cartLines:  make(map[uint][]domain.CartLine, len(t.cartLines)),
		orders:     make(map[uint]domain.Order, len(t.orders)),
		orderLines: make(map[uint][]domain.OrderLine, len(t.orderLines)),
		nextCartID: t.nextCartID,
		nextLineID: t.nextLineID,
		nextOrder:  t.nextOrder,
	}
	for k, v := range t.customers {
		c.customers[k] = v
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.skus {
		c.skus[k] = v
	}
	for k, v := range t.carts {
		c.carts[k] = v
	}
	for k, v := range t.cartLines {
		c.cartLines[k] = append([]domain.CartLine(nil), v...)
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	for k, v := range t.orderLines {
		c.orderLines[k] = append([]domain.OrderLine(nil), v...)
	}
	return c
}

type memRepos struct{ t *tables }

func (r *memRepos) Customers() domain.CustomerRepository { return &memCustomers{t: r.t} }
func (r *memRepos) Products() domain.ProductRepository   { return &memProducts{t: r.t} }
func (r *memRepos) Skus() domain.SkuRepository           { return &memSkus{t: r.t} }
func (r *memRepos) Carts() domain.CartRepository         { return &memCarts{t: r.t} }
func (r *memRepos) Orders() domain.OrderRepository       { return &memOrders{t: r.t} }

type memCustomers struct{ t *tables }

func (m *memCustomers) Find(ctx context.Context, id uint) (*domain.Customer, error) {
	c, ok := m.t.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

type memProducts struct{ t *tables }

func (m *memProducts) Find(ctx context.Context, id uint) (*domain.Product, error) {
	p, ok := m.t.products[id]
	if !ok {
		return nil, errors.Errorf("product %d not found", id)
	}
	return &p, nil
}

func (m *memProducts) IncrementSold(ctx context.Context, id uint, n int) error {
	p, ok := m.t.products[id]
	if !ok {
		return errors.Errorf("product %d not found", id)
	}
	p.Sold += int64(n)
	m.t.products[id] = p
	return nil
}

type memSkus struct{ t *tables }

func (m *memSkus) Find(ctx context.Context, id uint) (*domain.Sku, error) {
	sku, ok := m.t.skus[id]
	if !ok {
		return nil, &domain.SkuNotFoundError{SkuID: id}
	}
	return &sku, nil
}

// FindForUpdate needs no extra locking here: the store mutex already
// serializes whole transactions.
func (m *memSkus) FindForUpdate(ctx context.Context, id uint) (*domain.Sku, error) {
	return m.Find(ctx, id)
}

func (m *memSkus) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	sku, ok := m.t.skus[id]
	if !ok {
		return &domain.SkuNotFoundError{SkuID: id}
	}
	sku.Quantity = quantity
	m.t.skus[id] = sku
	return nil
}

type memCarts struct{ t *tables }

func (m *memCarts) EnsureCart(ctx context.Context, customerID uint) (*domain.Cart, error) {
	if cart, ok := m.t.carts[customerID]; ok {
		return &cart, nil
	}
	m.t.nextCartID++
	cart := domain.Cart{ID: m.t.nextCartID, CustomerID: customerID}
	m.t.carts[customerID] = cart
	return &cart, nil
}

func (m *memCarts) FindCart(ctx context.Context, customerID uint) (*domain.Cart, error) {
	cart, ok := m.t.carts[customerID]
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}
	return &cart, nil
}

func (m *memCarts) Line(ctx context.Context, cartID, skuID uint) (*domain.CartLine, error) {
	for _, line := range m.t.cartLines[cartID] {
		if line.SkuID == skuID {
			l := line
			return &l, nil
		}
	}
	return nil, domain.ErrCartItemNotFound
}

func (m *memCarts) Lines(ctx context.Context, cartID uint) ([]domain.CartLine, error) {
	lines := append([]domain.CartLine(nil), m.t.cartLines[cartID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (m *memCarts) SaveLine(ctx context.Context, line *domain.CartLine) error {
	if line.ID == 0 {
		m.t.nextLineID++
		line.ID = m.t.nextLineID
		m.t.cartLines[line.CartID] = append(m.t.cartLines[line.CartID], *line)
		return nil
	}
	for i, existing := range m.t.cartLines[line.CartID] {
		if existing.ID == line.ID {
			m.t.cartLines[line.CartID][i] = *line
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (m *memCarts) DeleteLine(ctx context.Context, cartID, skuID uint) error {
	lines := m.t.cartLines[cartID]
	for i, line := range lines {
		if line.SkuID == skuID {
			m.t.cartLines[cartID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (m *memCarts) DeleteLines(ctx context.Context, cartID uint, skuIDs []uint) error {
	drop := make(map[uint]bool, len(skuIDs))
	for _, id := range skuIDs {
		drop[id] = true
	}
	var kept []domain.CartLine
	for _, line := range m.t.cartLines[cartID] {
		if !drop[line.SkuID] {
			kept = append(kept, line)
		}
	}
	m.t.cartLines[cartID] = kept
	return nil
}

type memOrders struct{ t *tables }

func (m *memOrders) Create(ctx context.Context, order *domain.Order) error {
	m.t.nextOrder++
	order.ID = m.t.nextOrder
	m.t.orders[order.ID] = *order
	return nil
}

func (m *memOrders) CreateLines(ctx context.Context, lines []domain.OrderLine) error {
	for _, line := range lines {
		m.t.nextLineID++
		line.ID = m.t.nextLineID
		m.t.orderLines[line.OrderID] = append(m.t.orderLines[line.OrderID], line)
	}
	return nil
}

func (m *memOrders) Find(ctx context.Context, id uint) (*domain.Order, error) {
	order, ok := m.t.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (m *memOrders) FindForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return m.Find(ctx, id)
}

func (m *memOrders) FindByCustomer(ctx context.Context, customerID uint) ([]domain.Order, error) {
	var orders []domain.Order
	for _, order := range m.t.orders {
		if order.CustomerID == customerID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (m *memOrders) Lines(ctx context.Context, orderID uint) ([]domain.OrderLine, error) {
	return append([]domain.OrderLine(nil), m.t.orderLines[orderID]...), nil
}

func (m *memOrders) Save(ctx context.Context, order *domain.Order) error {
	if _, ok := m.t.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.t.orders[order.ID] = *order
	return nil
}
