package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"shopcore/internal/store/application"
	"shopcore/internal/store/domain"
)

// StoreHandler exposes the order and cart operations over HTTP. It is a
// thin adapter: parse, call, translate the error kind to a status code.
type StoreHandler struct {
	orders *application.OrderService
	carts  *application.CartService
}

func NewStoreHandler(orders *application.OrderService, carts *application.CartService) *StoreHandler {
	return &StoreHandler{orders: orders, carts: carts}
}

// RegisterRoutes registers all routes on the ServeMux.
func (h *StoreHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/orders", h.ordersHandler)
	mux.HandleFunc("/api/orders/status", h.updateStatusHandler)
	mux.HandleFunc("/api/orders/cancel", h.cancelHandler)
	mux.HandleFunc("/api/orders/return", h.returnHandler)
	mux.HandleFunc("/api/cart", h.cartHandler)
}

func extractCtx(r *http.Request) *http.Request {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *StoreHandler) ordersHandler(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	switch r.Method {
	case http.MethodPost:
		var req application.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		resp, err := h.orders.CreateOrder(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	case http.MethodGet:
		customerID, ok := queryUint(r, "customerId")
		if !ok {
			http.Error(w, "customerId is required", http.StatusBadRequest)
			return
		}
		views, err := h.orders.GetOrdersWithDetails(r.Context(), customerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StoreHandler) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OrderID uint          `json:"orderId"`
		Status  domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.orders.UpdateStatus(r.Context(), req.OrderID, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": req.OrderID, "status": req.Status})
}

func (h *StoreHandler) cancelHandler(w http.ResponseWriter, r *http.Request) {
	h.compensate(w, r, h.orders.CancelOrder)
}

func (h *StoreHandler) returnHandler(w http.ResponseWriter, r *http.Request) {
	h.compensate(w, r, h.orders.ReturnOrder)
}

func (h *StoreHandler) compensate(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, orderID uint, reason string) error) {
	r = extractCtx(r)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OrderID uint   `json:"orderId"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), req.OrderID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": req.OrderID})
}

func (h *StoreHandler) cartHandler(w http.ResponseWriter, r *http.Request) {
	r = extractCtx(r)
	switch r.Method {
	case http.MethodGet:
		customerID, ok := queryUint(r, "customerId")
		if !ok {
			http.Error(w, "customerId is required", http.StatusBadRequest)
			return
		}
		view, err := h.carts.GetItems(r.Context(), customerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPost, http.MethodPut:
		var req struct {
			CustomerID uint `json:"customerId"`
			SkuID      uint `json:"skuId"`
			Quantity   int  `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		var err error
		if r.Method == http.MethodPost {
			err = h.carts.AddItem(r.Context(), req.CustomerID, req.SkuID, req.Quantity)
		} else {
			err = h.carts.UpdateQuantity(r.Context(), req.CustomerID, req.SkuID, req.Quantity)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		customerID, okC := queryUint(r, "customerId")
		skuID, okS := queryUint(r, "skuId")
		if !okC || !okS {
			http.Error(w, "customerId and skuId are required", http.StatusBadRequest)
			return
		}
		if err := h.carts.RemoveItem(r.Context(), customerID, skuID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func queryUint(r *http.Request, key string) (uint, bool) {
	v, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		skuErr   *domain.SkuNotFoundError
		stockErr *domain.InsufficientStockError
	)
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCartItemNotFound),
		errors.As(err, &skuErr):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrAlreadyReturned),
		errors.As(err, &stockErr):
		status = http.StatusConflict
	case domain.IsCallerError(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
