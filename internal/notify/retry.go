package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// ErrCircuitOpen возвращается, пока circuit breaker не пропускает вызовы.
var ErrCircuitOpen = errors.New("notifier circuit breaker is open")

// RetryConfig конфигурация повторов отправки.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Permanent — ошибки, которые не повторяются (например, отклонённое письмо).
	Permanent []error
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retrying повторяет отправку с экспоненциальной задержкой.
// Ожидание прерывается отменой ctx.
type Retrying struct {
	next    domain.Notifier
	config  RetryConfig
	breaker *CircuitBreaker
	logger  *log.Entry
	sleep   func(ctx context.Context, d time.Duration) error
}

// RetryOption настраивает Retrying.
type RetryOption func(*Retrying)

// WithCircuitBreaker пропускает отправку через breaker.
func WithCircuitBreaker(cb *CircuitBreaker) RetryOption {
	return func(r *Retrying) { r.breaker = cb }
}

// NewRetrying оборачивает next повторами.
func NewRetrying(next domain.Notifier, config RetryConfig, logger *log.Entry, opts ...RetryOption) *Retrying {
	if logger == nil {
		logger = log.WithField("component", "retrying-notifier")
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	r := &Retrying{
		next:   next,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Notify(ctx context.Context, c domain.Confirmation) error {
	var lastErr error
	delay := r.config.InitialDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := r.send(ctx, c)
		if err == nil {
			if attempt > 1 {
				r.logger.WithFields(log.Fields{
					"order_id": c.OrderID,
					"attempt":  attempt,
				}).Info("notification sent after retry")
			}
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err) {
			r.logger.WithError(err).WithField("order_id", c.OrderID).Warn("notification failed with non-retryable error")
			return err
		}

		if attempt < r.config.MaxAttempts {
			r.logger.WithError(err).WithFields(log.Fields{
				"order_id": c.OrderID,
				"attempt":  attempt,
				"delay":    delay,
			}).Warn("notification failed, retrying")

			if err := r.sleep(ctx, delay); err != nil {
				return lastErr
			}

			delay = time.Duration(float64(delay) * r.config.BackoffFactor)
			if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		}
	}

	r.logger.WithError(lastErr).WithFields(log.Fields{
		"order_id":     c.OrderID,
		"max_attempts": r.config.MaxAttempts,
	}).Error("notification failed after all retry attempts")
	return lastErr
}

func (r *Retrying) send(ctx context.Context, c domain.Confirmation) error {
	if r.breaker == nil {
		return r.next.Notify(ctx, c)
	}
	return r.breaker.execute(func() error { return r.next.Notify(ctx, c) }, r.shouldRetry)
}

func (r *Retrying) shouldRetry(err error) bool {
	if errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, permanent := range r.config.Permanent {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker размыкается после maxFailures ошибок подряд и через
// resetTimeout пропускает одну пробную отправку.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
	logger      *log.Entry
}

// NewCircuitBreaker создаёт circuit breaker.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        CircuitClosed,
		logger:       logger.WithField("breaker", name),
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет fn, если breaker замкнут или ждёт пробного вызова.
// Любая ошибка fn считается отказом.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.execute(fn, func(error) bool { return true })
}

// execute учитывает как отказ только ошибки, для которых transient возвращает true.
// Остальные ошибки означают, что получатель ответил, и breaker замыкается.
func (cb *CircuitBreaker) execute(fn func() error, transient func(error) bool) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.logger.Info("circuit breaker half-open")
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil && transient(err) {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			if cb.state != CircuitOpen {
				cb.logger.WithField("failures", cb.failures).Warn("circuit breaker opened")
			}
			cb.state = CircuitOpen
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.logger.Info("circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return err
}

var _ domain.Notifier = (*Retrying)(nil)
