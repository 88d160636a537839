package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopcore/internal/pkg/cache"
	"shopcore/internal/pkg/metrics"
	"shopcore/internal/store/domain"
	"shopcore/internal/store/port"
)

// OrderService drives the order lifecycle: cart-to-order conversion inside
// one atomic unit of work, the status state machine, and compensating
// restocks on cancellation/return. Side effects (mail, events, broadcast)
// run strictly after commit and are best-effort.
type OrderService struct {
	store       domain.Store
	ledger      *InventoryLedger
	notifier    port.NotificationGateway
	buses       []port.EventBus
	badge       *cache.Client
	shippingFee int64
	tracer      trace.Tracer
	now         func() time.Time
}

func NewOrderService(
	store domain.Store,
	ledger *InventoryLedger,
	notifier port.NotificationGateway,
	buses []port.EventBus,
	badge *cache.Client,
	shippingFee int64,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		store:       store,
		ledger:      ledger,
		notifier:    notifier,
		buses:       buses,
		badge:       badge,
		shippingFee: shippingFee,
		tracer:      tracer,
		now:         time.Now,
	}
}

// CreateOrder converts the selected cart lines into a committed order.
// The whole sequence — stock decrements, order and line inserts, cart-line
// deletes — is one transaction: any failure rolls everything back and no
// partial state is ever observable.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int("customer.id", int(req.CustomerID)),
		attribute.Int("order.lines", len(req.Lines)),
	)
	timer := prometheus.NewTimer(metrics.OrderCreateDuration)
	defer timer.ObserveDuration()

	if len(req.Lines) == 0 || req.Address == "" {
		metrics.OrderFailures.WithLabelValues("validation").Inc()
		return nil, domain.ErrEmptyCart
	}

	var (
		order    domain.Order
		customer *domain.Customer
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		customer, err = r.Customers().Find(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		order = domain.Order{
			CustomerID:  req.CustomerID,
			Address:     req.Address,
			PaymentID:   req.PaymentID,
			CouponID:    req.CouponID,
			Status:      domain.StatusPendingConfirmation,
			ShippingFee: s.shippingFee,
			Total:       req.Total,
			CreatedAt:   s.now(),
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			return err
		}

		lines := make([]domain.OrderLine, 0, len(req.Lines))
		skuIDs := make([]uint, 0, len(req.Lines))
		for _, reqLine := range req.Lines {
			sku, err := r.Skus().Find(ctx, reqLine.SkuID)
			if err != nil {
				return err
			}
			if err := s.ledger.Decrement(ctx, r, sku.ID, reqLine.Quantity); err != nil {
				return err
			}
			product, err := r.Products().Find(ctx, sku.ProductID)
			if err != nil {
				return err
			}
			if err := r.Products().IncrementSold(ctx, sku.ProductID, reqLine.Quantity); err != nil {
				return err
			}
			lines = append(lines, domain.OrderLine{
				OrderID:  order.ID,
				SkuID:    sku.ID,
				Name:     product.Name,
				Quantity: reqLine.Quantity,
				Price:    sku.Price,
			})
			skuIDs = append(skuIDs, sku.ID)
		}
		if err := r.Orders().CreateLines(ctx, lines); err != nil {
			return err
		}

		cart, err := r.Carts().FindCart(ctx, req.CustomerID)
		if err == nil {
			return r.Carts().DeleteLines(ctx, cart.ID, skuIDs)
		}
		if errors.Is(err, domain.ErrCartItemNotFound) {
			// Checkout without a persisted cart (buy-now path).
			return nil
		}
		return err
	})
	if err != nil {
		s.recordCreateFailure(span, err)
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	span.AddEvent("order committed")
	runHooks(ctx, s.orderHooks(&order, customer,
		"Order confirmation",
		fmt.Sprintf("Your order #%d has been placed and is pending confirmation.", order.ID)))

	return &CreateOrderResponse{OrderID: order.ID, Status: order.Status}, nil
}

func (s *OrderService) recordCreateFailure(span trace.Span, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		metrics.StockConflicts.Inc()
		metrics.OrderFailures.WithLabelValues("insufficient_stock").Inc()
	case domain.IsCallerError(err):
		metrics.OrderFailures.WithLabelValues("validation").Inc()
	default:
		metrics.OrderFailures.WithLabelValues("infrastructure").Inc()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "order creation failed")
}

// GetOrdersWithDetails returns the customer's orders, newest first, each
// with its line snapshots.
func (s *OrderService) GetOrdersWithDetails(ctx context.Context, customerID uint) ([]OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrdersWithDetails")
	defer span.End()

	var views []OrderView
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		orders, err := r.Orders().FindByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		views = make([]OrderView, 0, len(orders))
		for _, o := range orders {
			lines, err := r.Orders().Lines(ctx, o.ID)
			if err != nil {
				return err
			}
			views = append(views, OrderView{Order: o, Lines: lines})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list orders failed")
		return nil, err
	}
	return views, nil
}

// UpdateStatus moves the order along the lifecycle graph, stamping the
// mapped timestamp. Transitions into Cancelled or Returned restock every
// line in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status domain.Status) error {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int("order.id", int(orderID)),
		attribute.String("order.status", string(status)),
	)

	order, customer, err := s.transition(ctx, orderID, status, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return err
	}
	runHooks(ctx, s.orderHooks(order, customer,
		"Order status update",
		fmt.Sprintf("Your order #%d is now %s.", order.ID, order.Status)))
	return nil
}

// CancelOrder cancels the order and restocks every line exactly once. A
// repeat call reports ErrAlreadyCancelled without touching inventory.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, reason string) error {
	ctx, span := s.tracer.Start(ctx, "order.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order.id", int(orderID)))

	order, customer, err := s.transition(ctx, orderID, domain.StatusCancelled, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return err
	}
	runHooks(ctx, s.orderHooks(order, customer,
		"Order cancelled",
		fmt.Sprintf("Your order #%d has been cancelled.", order.ID)))
	return nil
}

// ReturnOrder registers a return for a completed or delivered order,
// restocking every line. A repeat call reports ErrAlreadyReturned.
func (s *OrderService) ReturnOrder(ctx context.Context, orderID uint, reason string) error {
	ctx, span := s.tracer.Start(ctx, "order.ReturnOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order.id", int(orderID)))

	order, customer, err := s.transition(ctx, orderID, domain.StatusReturned, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "return failed")
		return err
	}
	runHooks(ctx, s.orderHooks(order, customer,
		"Order returned",
		fmt.Sprintf("Your return for order #%d has been registered.", order.ID)))
	return nil
}

// transition validates and applies one status change in a single
// transaction, restocking line quantities when the target status requires
// compensation. Exact repeats of terminal compensating states surface as
// their dedicated errors; every other unreachable edge is an
// InvalidTransitionError.
func (s *OrderService) transition(ctx context.Context, orderID uint, to domain.Status, reason string) (*domain.Order, *domain.Customer, error) {
	var (
		order    *domain.Order
		customer *domain.Customer
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		order, err = r.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		switch {
		case to == domain.StatusCancelled && order.Status == domain.StatusCancelled:
			return domain.ErrAlreadyCancelled
		case to == domain.StatusReturned && order.Status == domain.StatusReturned:
			return domain.ErrAlreadyReturned
		case !order.Status.CanTransitionTo(to):
			return &domain.InvalidTransitionError{From: order.Status, To: to}
		}

		if to.Restocks() {
			lines, err := r.Orders().Lines(ctx, orderID)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if err := s.ledger.Increment(ctx, r, line.SkuID, line.Quantity); err != nil {
					return err
				}
			}
		}

		order.Transition(to, s.now())
		if reason != "" {
			order.CancelReason = reason
		}
		if err := r.Orders().Save(ctx, order); err != nil {
			return err
		}
		customer, err = r.Customers().Find(ctx, order.CustomerID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return order, customer, nil
}

// orderHooks assembles the post-commit side effects for one committed
// order mutation: confirmation mail, event publication on every bus, and
// cart badge invalidation.
func (s *OrderService) orderHooks(order *domain.Order, customer *domain.Customer, subject, body string) []hook {
	event := port.OrderEvent{
		EventID:    uuid.New().String(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Message:    body,
	}
	hooks := []hook{
		{name: "notification", fn: func(ctx context.Context) error {
			if s.notifier == nil {
				return nil
			}
			return s.notifier.Send(ctx, customer.Email, subject, body)
		}},
		{name: "cart_badge", fn: func(ctx context.Context) error {
			s.badge.Delete(ctx, cartBadgeKey(order.CustomerID))
			return nil
		}},
	}
	for i, bus := range s.buses {
		bus := bus
		hooks = append(hooks, hook{
			name: fmt.Sprintf("event_bus_%d", i),
			fn: func(ctx context.Context) error {
				return bus.Publish(ctx, event)
			},
		})
	}
	return hooks
}
