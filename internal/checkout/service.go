package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/cart"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/metrics"
)

// State — наблюдаемое состояние отправки заказа.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Observer получает переходы состояния отправки.
type Observer func(orderID string, from, to State)

// Result описывает исход оформления.
type Result struct {
	State State
	Order domain.Order
	// Warnings — мягкие ошибки после сохранения заказа (уведомление, очистка корзины).
	Warnings []error
}

// Service оформляет заказ из корзины: валидирует, считает суммы,
// сохраняет заказ и отправляет подтверждение.
type Service struct {
	orders   domain.OrderRepository
	notifier domain.Notifier
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	observer Observer
	now      func() time.Time
	newID    func(time.Time) string
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает prometheus-метрики.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithObserver подписывает на переходы состояния.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOrderIDGenerator подменяет генератор orderId.
func WithOrderIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService создаёт сервис оформления. notifier может быть nil.
func NewService(orders domain.OrderRepository, notifier domain.Notifier, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	s := &Service{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit оформляет заказ из корзины store.
//
// Ошибки: domain.ErrEmptyCart и *domain.ValidationError до обращения к
// внешним системам; *domain.OrderPersistenceError, если репозиторий
// отказал (корзина не меняется). Ошибка уведомления не является ошибкой
// Submit и попадает в Result.Warnings; цепочка ошибки содержит *domain.NotificationError.
// Оформления одной корзины выполняются по очереди; после сохранения из
// корзины удаляются только оформленные позиции.
func (s *Service) Submit(ctx context.Context, store *cart.Store, form domain.CheckoutForm) (Result, error) {
	unlock := store.LockCheckout()
	defer unlock()

	start := s.now()
	res := Result{State: StateIdle}

	snapshot := store.Snapshot()
	if snapshot.IsEmpty() {
		s.recordResult(metrics.ResultEmptyCart)
		return res, domain.ErrEmptyCart
	}

	normalized, err := Validate(form)
	if err != nil {
		s.recordResult(metrics.ResultValidationFailed)
		return res, err
	}

	order := s.buildOrder(normalized, snapshot)
	logger := s.logger.WithFields(log.Fields{
		"order_id":   order.OrderID,
		"session_id": store.SessionID(),
	})

	res.Order = order
	res.State = s.transition(order.OrderID, res.State, StateSubmitting)

	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSubmissionDuration(s.now().Sub(start))
		}
	}()

	if err := s.orders.Create(ctx, order); err != nil {
		res.State = s.transition(order.OrderID, res.State, StateFailed)
		logger.WithError(err).Error("failed to persist order")
		s.recordResult(metrics.ResultFailed)
		return res, &domain.OrderPersistenceError{OrderID: order.OrderID, Err: err}
	}
	res.State = s.transition(order.OrderID, res.State, StateSucceeded)
	s.recordResult(metrics.ResultSucceeded)
	if s.metrics != nil {
		s.metrics.RecordOrderGrandTotal(order.GrandTotal.InexactFloat64())
	}
	logger.WithField("grand_total", order.GrandTotal.String()).Info("order placed")

	if err := store.RemoveOrdered(ctx, snapshot.Items); err != nil {
		logger.WithError(err).Warn("order placed but cart was not cleared")
		res.Warnings = append(res.Warnings, fmt.Errorf("clear cart: %w", err))
	}

	if err := s.notify(ctx, order); err != nil {
		logger.WithError(err).Warn("order confirmation notification failed")
		res.Warnings = append(res.Warnings, err)
	}

	return res, nil
}

// Summary возвращает рассчитанные суммы для текущей корзины без оформления.
func (s *Service) Summary(store *cart.Store) (domain.CartSnapshot, domain.Totals) {
	snapshot := store.Snapshot()
	return snapshot, Quote(snapshot)
}

func (s *Service) buildOrder(form domain.CheckoutForm, snapshot domain.CartSnapshot) domain.Order {
	now := s.now()
	return domain.Order{
		OrderID:       s.newID(now),
		Status:        domain.OrderStatusPending,
		CustomerName:  form.Name,
		CustomerEmail: form.Email,
		CustomerPhone: form.Phone,
		ShippingAddress: domain.ShippingAddress{
			Address: form.Address,
			ZipCode: form.ZipCode,
			City:    form.City,
			Country: form.Country,
		},
		PaymentMethod: form.PaymentMethod,
		Items:         domain.ItemsFromCart(snapshot.Items),
		Totals:        Quote(snapshot),
		CreatedAt:     now,
	}
}

func (s *Service) notify(ctx context.Context, order domain.Order) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, domain.NewConfirmation(order)); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure()
		}
		var nerr *domain.NotificationError
		if errors.As(err, &nerr) {
			return err
		}
		return &domain.NotificationError{OrderID: order.OrderID, Err: err}
	}
	return nil
}

func (s *Service) transition(orderID string, from, to State) State {
	if s.observer != nil {
		s.observer(orderID, from, to)
	}
	return to
}

func (s *Service) recordResult(result string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(result)
	}
}
