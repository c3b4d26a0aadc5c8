package cart

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/metrics"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultSessionIdle      = 30 * time.Minute
	defaultCleanupBatchSize = 500
)

// Expirer — хранилище, которое само не удаляет старые корзины (in-memory).
// Redis справляется с этим через TTL ключа.
type Expirer interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// CleanupOptions задает параметры воркера очистки корзин.
type CleanupOptions struct {
	Logger      *log.Entry
	Metrics     *metrics.CheckoutMetrics
	Interval    time.Duration
	SessionIdle time.Duration
	CartTTL     time.Duration
	BatchSize   int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithCleanupLogger задает logger для воркера.
func WithCleanupLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) { opts.Logger = logger }
}

// WithCleanupMetrics подключает метрики очистки.
func WithCleanupMetrics(m *metrics.CheckoutMetrics) CleanupOption {
	return func(opts *CleanupOptions) { opts.Metrics = m }
}

// WithCleanupInterval задает интервал между циклами.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) { opts.Interval = interval }
}

// WithSessionIdle задает простой, после которого корзина выгружается из памяти.
func WithSessionIdle(idle time.Duration) CleanupOption {
	return func(opts *CleanupOptions) { opts.SessionIdle = idle }
}

// WithCartTTL задает срок хранения корзины с последнего изменения.
func WithCartTTL(ttl time.Duration) CleanupOption {
	return func(opts *CleanupOptions) { opts.CartTTL = ttl }
}

// CleanupWorker периодически выгружает простаивающие сессии и удаляет
// просроченные корзины из хранилища.
type CleanupWorker struct {
	sessions    *Sessions
	expirer     Expirer
	logger      *log.Entry
	metrics     *metrics.CheckoutMetrics
	interval    time.Duration
	sessionIdle time.Duration
	cartTTL     time.Duration
	batchSize   int
	now         func() time.Time
}

// NewCleanupWorker создает воркер. expirer может быть nil: тогда чистятся только сессии.
func NewCleanupWorker(sessions *Sessions, expirer Expirer, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:    defaultCleanupInterval,
		SessionIdle: defaultSessionIdle,
		BatchSize:   defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-cleanup-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = defaultSessionIdle
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		sessions:    sessions,
		expirer:     expirer,
		logger:      logger,
		metrics:     opts.Metrics,
		interval:    opts.Interval,
		sessionIdle: opts.SessionIdle,
		cartTTL:     opts.CartTTL,
		batchSize:   opts.BatchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	evicted, expired, err := w.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.record("error", expired, evicted)
		w.logger.WithError(err).Warn("cart cleanup run failed")
		return
	}

	w.record("ok", expired, evicted)
	if evicted > 0 || expired > 0 {
		w.logger.WithFields(log.Fields{
			"evicted": evicted,
			"expired": expired,
		}).Info("cart cleanup completed")
	}
}

// RunOnce выполняет один цикл очистки.
func (w *CleanupWorker) RunOnce(ctx context.Context) (evicted, expired int, err error) {
	now := w.now()
	if w.sessions != nil {
		evicted = w.sessions.EvictIdle(now.Add(-w.sessionIdle))
		if w.metrics != nil {
			w.metrics.SetOpenCarts(w.sessions.Len())
		}
	}

	if w.expirer == nil || w.cartTTL <= 0 {
		return evicted, 0, nil
	}
	expired, err = w.DeleteExpired(ctx, now.Add(-w.cartTTL))
	return evicted, expired, err
}

// DeleteExpired удаляет все корзины, сохранённые не позже before, порциями batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.expirer.DeleteExpired(ctx, before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted < w.batchSize {
			return totalDeleted, nil
		}
	}
}

func (w *CleanupWorker) record(result string, expired, evicted int) {
	if w.metrics != nil {
		w.metrics.RecordCartCleanup(result, expired, evicted)
	}
}
