// Package httpapi — HTTP/JSON API витрины: каталог, корзина, оформление и заказы.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/cart"
	"github.com/vladislavdragonenkov/audiophile/internal/checkout"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/metrics"
)

const (
	defaultOrdersLimit = 20
	maxOrdersLimit     = 100
	maxBodyBytes       = 1 << 20
)

// Handler обслуживает API витрины.
type Handler struct {
	catalog  domain.ProductCatalog
	sessions *cart.Sessions
	checkout *checkout.Service
	orders   domain.OrderRepository
	logger   *log.Entry
}

// NewHandler собирает обработчики API.
func NewHandler(
	catalog domain.ProductCatalog,
	sessions *cart.Sessions,
	checkoutSvc *checkout.Service,
	orders domain.OrderRepository,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{
		catalog:  catalog,
		sessions: sessions,
		checkout: checkoutSvc,
		orders:   orders,
		logger:   logger,
	}
}

// NewRouter регистрирует маршруты /api; httpMetrics может быть nil.
func NewRouter(h *Handler, httpMetrics *metrics.HTTPMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument(httpMetrics))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProduct)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderId}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(withSession)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddItem)
			r.Patch("/cart/items/{productId}", h.UpdateItem)
			r.Delete("/cart/items/{productId}", h.RemoveItem)

			r.Get("/checkout/summary", h.CheckoutSummary)
			r.Post("/checkout", h.Checkout)
		})
	})
	return r
}

// ListProducts возвращает каталог, опционально отфильтрованный по ?category=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		products, err = h.catalog.ListByCategory(r.Context(), domain.Category(strings.ToLower(category)))
	} else {
		products, err = h.catalog.List(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: products})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// AddItem добавляет товар из каталога; имя, цена и изображение берутся из каталога.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		h.writeDomainError(w, r, domain.NewValidationError(domain.FieldProductID, domain.ErrProductIDRequired.Error()))
		return
	}

	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := store.AddItem(r.Context(), product.ID, product.Name, product.Price, req.Quantity, product.ImageRef()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// UpdateItem выставляет количество; 0 и меньше удаляет позицию.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		h.writeDomainError(w, r, domain.NewValidationError(domain.FieldQuantity, "quantity is required"))
		return
	}

	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), *req.Quantity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}
	if err := store.RemoveItem(r.Context(), chi.URLParam(r, "productId")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

// CheckoutSummary возвращает суммы текущей корзины до оформления.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}
	snapshot, totals := h.checkout.Summary(store)
	writeJSON(w, http.StatusOK, newSummaryResponse(snapshot, totals))
}

// Checkout оформляет заказ из корзины сессии.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var form domain.CheckoutForm
	if !decodeBody(w, r, &form) {
		return
	}

	store, ok := h.cartStore(w, r)
	if !ok {
		return
	}

	// Оформление не должно прерываться разрывом соединения после сохранения заказа.
	ctx := context.WithoutCancel(r.Context())
	res, err := h.checkout.Submit(ctx, store, form)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := CheckoutResponse{State: string(res.State), Order: res.Order}
	for _, warning := range res.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders возвращает заказы покупателя по ?email=, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.writeDomainError(w, r, domain.NewValidationError(domain.FieldEmail, "email query parameter is required"))
		return
	}

	limit := defaultOrdersLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeDomainError(w, r, domain.NewValidationError("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxOrdersLimit)
	}

	orders, err := h.orders.ListByEmail(r.Context(), email, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

func (h *Handler) cartStore(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := h.sessions.Get(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	return store, true
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, store *cart.Store) {
	writeJSON(w, status, CartResponse{SessionID: store.SessionID(), Cart: store.Snapshot()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, codeInvalidJSON, fmt.Sprintf("decode request: %s", msg))
		return false
	}
	return true
}
