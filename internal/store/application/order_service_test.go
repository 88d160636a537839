package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"shopcore/internal/store/domain"
	"shopcore/internal/store/infrastructure"
	"shopcore/internal/store/port"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+": "+subject)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []port.OrderEvent
}

func (f *fakeBus) Publish(ctx context.Context, event port.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBus) all() []port.OrderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]port.OrderEvent(nil), f.events...)
}

const testShippingFee = 30000

func newOrderFixture(t *testing.T) (*infrastructure.MemoryStore, *OrderService, *CartService, *fakeNotifier, *fakeBus) {
	t.Helper()
	store := infrastructure.NewMemoryStore()
	notifier := &fakeNotifier{}
	bus := &fakeBus{}
	tracer := otel.Tracer("test")
	orders := NewOrderService(store, NewInventoryLedger(), notifier,
		[]port.EventBus{bus}, nil, testShippingFee, tracer)
	carts := NewCartService(store, nil, tracer)

	store.SeedCustomer(domain.Customer{ID: 1, FirstName: "Linh", LastName: "Tran", Email: "linh@example.com"})
	store.SeedProduct(domain.Product{ID: 10, Name: "Linen Shirt"})
	store.SeedSku(domain.Sku{ID: 100, ProductID: 10, Size: "M", Color: "White", Price: 100, Quantity: 5})
	return store, orders, carts, notifier, bus
}

func TestCreateOrderHappyPath(t *testing.T) {
	store, orders, carts, notifier, bus := newOrderFixture(t)
	ctx := context.Background()

	require.NoError(t, carts.AddItem(ctx, 1, 100, 2))

	resp, err := orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 1,
		Lines:      []CheckoutLine{{SkuID: 100, Quantity: 2}},
		Address:    "12 Hang Bac, Hanoi",
		PaymentID:  1,
		Total:      230000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingConfirmation, resp.Status)

	sku, _ := store.Sku(100)
	assert.Equal(t, 3, sku.Quantity)

	product, _ := store.Product(10)
	assert.Equal(t, int64(2), product.Sold)

	cart, err := carts.GetItems(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	views, err := orders.GetOrdersWithDetails(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Lines, 1)
	line := views[0].Lines[0]
	assert.Equal(t, uint(100), line.SkuID)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, int64(100), line.Price)
	assert.Equal(t, "Linen Shirt", line.Name)
	assert.Equal(t, int64(testShippingFee), views[0].Order.ShippingFee)

	notifier.mu.Lock()
	assert.Len(t, notifier.sent, 1)
	notifier.mu.Unlock()
	events := bus.all()
	require.Len(t, events, 1)
	assert.Equal(t, resp.OrderID, events[0].OrderID)
	assert.Equal(t, domain.StatusPendingConfirmation, events[0].Status)
	assert.NotEmpty(t, events[0].EventID)
}

func TestCreateOrderValidation(t *testing.T) {
	_, orders, _, _, _ := newOrderFixture(t)
	ctx := context.Background()

	_, err := orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 1, Address: "12 Hang Bac, Hanoi",
	})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 1, Lines: []CheckoutLine{{SkuID: 100, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 99,
		Lines:      []CheckoutLine{{SkuID: 100, Quantity: 1}},
		Address:    "12 Hang Bac, Hanoi",
	})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCreateOrderUnknownSkuRollsBack(t *testing.T) {
	store, orders, _, _, bus := newOrderFixture(t)
	ctx := context.Background()

	_, err := orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 1,
		Lines: []CheckoutLine{
			{SkuID: 100, Quantity: 2},
			{SkuID: 999, Quantity: 1},
		},
		Address: "12 Hang Bac, Hanoi",
	})
	var skuErr *domain.SkuNotFoundError
	require.ErrorAs(t, err, &skuErr)
	assert.Equal(t, uint(999), skuErr.SkuID)

	// The first line's decrement must have been rolled back with the rest.
	sku, _ := store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)
	views, err := orders.GetOrdersWithDetails(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Empty(t, bus.all())
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	store, orders, carts, _, _ := newOrderFixture(t)
	ctx := context.Background()
	store.SeedSku(domain.Sku{ID: 101, ProductID: 10, Size: "L", Color: "White", Price: 120, Quantity: 1})

	require.NoError(t, carts.AddItem(ctx, 1, 100, 1))

	_, err := orders.CreateOrder(ctx, &CreateOrderRequest{
		CustomerID: 1,
		Lines: []CheckoutLine{
			{SkuID: 100, Quantity: 1},
			{SkuID: 101, Quantity: 3},
		},
		Address: "12 Hang Bac, Hanoi",
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, uint(101), stockErr.SkuID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	sku, _ := store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)

	// The consumed cart line survives the aborted checkout.
	cart, err := carts.GetItems(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestConcurrentCheckoutOnLastUnit(t *testing.T) {
	store, orders, _, _, _ := newOrderFixture(t)
	store.SeedSku(domain.Sku{ID: 200, ProductID: 10, Size: "S", Color: "Black", Price: 90, Quantity: 1})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.CreateOrder(context.Background(), &CreateOrderRequest{
				CustomerID: 1,
				Lines:      []CheckoutLine{{SkuID: 200, Quantity: 1}},
				Address:    "12 Hang Bac, Hanoi",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	sku, _ := store.Sku(200)
	assert.Equal(t, 0, sku.Quantity)
}

func createOrder(t *testing.T, orders *OrderService, qty int) uint {
	t.Helper()
	resp, err := orders.CreateOrder(context.Background(), &CreateOrderRequest{
		CustomerID: 1,
		Lines:      []CheckoutLine{{SkuID: 100, Quantity: qty}},
		Address:    "12 Hang Bac, Hanoi",
	})
	require.NoError(t, err)
	return resp.OrderID
}

func TestCancelOrderRestocksExactlyOnce(t *testing.T) {
	store, orders, _, _, _ := newOrderFixture(t)
	ctx := context.Background()
	id := createOrder(t, orders, 2)

	sku, _ := store.Sku(100)
	require.Equal(t, 3, sku.Quantity)

	require.NoError(t, orders.CancelOrder(ctx, id, "changed my mind"))
	order, ok := store.Order(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.NotNil(t, order.CanceledAt)
	assert.Equal(t, "changed my mind", order.CancelReason)

	sku, _ = store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)

	err := orders.CancelOrder(ctx, id, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	sku, _ = store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)
}

func TestUpdateStatusToCancelledRestocks(t *testing.T) {
	store, orders, _, _, bus := newOrderFixture(t)
	ctx := context.Background()
	id := createOrder(t, orders, 2)

	require.NoError(t, orders.UpdateStatus(ctx, id, domain.StatusCancelled))
	order, _ := store.Order(id)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.NotNil(t, order.CanceledAt)

	sku, _ := store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)

	events := bus.all()
	require.NotEmpty(t, events)
	assert.Equal(t, domain.StatusCancelled, events[len(events)-1].Status)
}

func TestUpdateStatusStampsTimestamps(t *testing.T) {
	store, orders, _, _, _ := newOrderFixture(t)
	ctx := context.Background()
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	orders.now = func() time.Time { return stamp }
	id := createOrder(t, orders, 1)

	require.NoError(t, orders.UpdateStatus(ctx, id, domain.StatusInTransit))
	order, _ := store.Order(id)
	require.NotNil(t, order.ShippingAt)
	assert.Equal(t, stamp, *order.ShippingAt)

	require.NoError(t, orders.UpdateStatus(ctx, id, domain.StatusDelivered))
	order, _ = store.Order(id)
	require.NotNil(t, order.DeliveryAt)
	assert.Equal(t, stamp, *order.DeliveryAt)
}

func TestUpdateStatusRejectsInvalidEdges(t *testing.T) {
	_, orders, _, _, _ := newOrderFixture(t)
	ctx := context.Background()
	id := createOrder(t, orders, 1)

	err := orders.UpdateStatus(ctx, id, domain.StatusReturned)
	var transErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, domain.StatusPendingConfirmation, transErr.From)
	assert.Equal(t, domain.StatusReturned, transErr.To)

	assert.ErrorIs(t, orders.UpdateStatus(ctx, 404, domain.StatusInTransit), domain.ErrOrderNotFound)
}

func TestReturnOrderLifecycle(t *testing.T) {
	store, orders, _, _, _ := newOrderFixture(t)
	ctx := context.Background()
	id := createOrder(t, orders, 2)
	require.NoError(t, orders.UpdateStatus(ctx, id, domain.StatusInTransit))
	require.NoError(t, orders.UpdateStatus(ctx, id, domain.StatusDelivered))

	sku, _ := store.Sku(100)
	require.Equal(t, 3, sku.Quantity)

	require.NoError(t, orders.ReturnOrder(ctx, id, "wrong size"))
	order, _ := store.Order(id)
	assert.Equal(t, domain.StatusReturned, order.Status)
	assert.NotNil(t, order.ReturnedAt)
	sku, _ = store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)

	err := orders.ReturnOrder(ctx, id, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
	sku, _ = store.Sku(100)
	assert.Equal(t, 5, sku.Quantity)

	// A returned order can no longer be cancelled either.
	var transErr *domain.InvalidTransitionError
	assert.ErrorAs(t, orders.CancelOrder(ctx, id, "late cancel"), &transErr)
}

func TestStockNeverNegativeUnderMixedTraffic(t *testing.T) {
	store, orders, _, _, _ := newOrderFixture(t)
	store.SeedSku(domain.Sku{ID: 300, ProductID: 10, Size: "XL", Color: "Navy", Price: 110, Quantity: 4})

	var wg sync.WaitGroup
	ids := make(chan uint, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := orders.CreateOrder(context.Background(), &CreateOrderRequest{
				CustomerID: 1,
				Lines:      []CheckoutLine{{SkuID: 300, Quantity: 1}},
				Address:    "12 Hang Bac, Hanoi",
			})
			if err == nil {
				ids <- resp.OrderID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var created []uint
	for id := range ids {
		created = append(created, id)
	}
	assert.Len(t, created, 4)
	sku, _ := store.Sku(300)
	assert.Equal(t, 0, sku.Quantity)

	for _, id := range created {
		require.NoError(t, orders.CancelOrder(context.Background(), id, "load test"))
	}
	sku, _ = store.Sku(300)
	assert.Equal(t, 4, sku.Quantity)
	assert.GreaterOrEqual(t, sku.Quantity, 0)
}
