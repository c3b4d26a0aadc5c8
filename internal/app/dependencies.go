package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/catalog"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/audiophile/internal/health"
	"github.com/vladislavdragonenkov/audiophile/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/audiophile/internal/notify"
	"github.com/vladislavdragonenkov/audiophile/internal/notify/mail"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/postgres"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/redisstore"
)

// runtimeDependencies — собранные по конфигурации хранилища и интеграции.
type runtimeDependencies struct {
	catalog     catalog.Store
	orders      domain.OrderRepository
	cartStorage domain.CartStorage
	notifier    domain.Notifier

	// checks регистрируются в health-обработчике: имя → (критичность, ping).
	checks []healthRegistration

	closeFn func() error
}

type healthRegistration struct {
	name     string
	critical bool
	ping     healthcheck.PingFunc
}

func (d *runtimeDependencies) registerChecks(h *healthcheck.Handler) {
	for _, c := range d.checks {
		h.Register(c.name, c.critical, c.ping)
	}
}

// initRuntimeDependencies создаёт хранилища и notifiers согласно cfg.
// При ошибке всё, что уже было открыто, закрывается.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &runtimeDependencies{}
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*runtimeDependencies, error) {
		if closeErr := closeAll(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to release dependencies after init error")
		}
		return nil, err
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		products, err := memory.NewProductCatalog()
		if err != nil {
			return fail(err)
		}
		deps.catalog = products
		deps.orders = memory.NewOrderRepository()
		logger.Info("using in-memory storage")

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return fail(errors.New("postgres storage requires postgres dsn"))
		}
		store, err := postgres.OpenWithOptions(ctx, cfg.PostgresDSN, postgres.PoolOptions{
			MaxOpenConns: cfg.PostgresMaxOpenConns,
			MaxIdleConns: cfg.PostgresMaxOpenConns,
		})
		if err != nil {
			return fail(fmt.Errorf("open postgres: %w", err))
		}
		closers = append(closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fail(fmt.Errorf("migrate postgres: %w", err))
			}
			state, err := store.MigrationStatus(ctx)
			if err != nil {
				return fail(fmt.Errorf("migration status: %w", err))
			}
			logger.WithFields(log.Fields{
				"version": state.Version,
				"applied": state.Applied,
			}).Info("postgres schema is up to date")
		}

		deps.catalog = postgres.NewProductRepository(store)
		deps.orders = postgres.NewOrderRepository(store)
		deps.checks = append(deps.checks, healthRegistration{name: "postgres", critical: true, ping: store.Ping})
		logger.Info("using postgres storage")

	default:
		return fail(fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver))
	}

	if cfg.CatalogAutoSeed {
		if err := seedIfEmpty(ctx, deps.catalog, logger); err != nil {
			return fail(err)
		}
	}

	switch cfg.CartStorage {
	case CartStorageMemory, "":
		deps.cartStorage = memory.NewCartStorage()

	case CartStorageRedis:
		client := redisstore.NewClient(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		storage := redisstore.NewCartStorage(client, redisstore.Options{
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.CartTTL,
		})
		closers = append(closers, storage.Close)
		if err := storage.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis is not reachable yet, carts will fail until it recovers")
		}
		deps.cartStorage = storage
		deps.checks = append(deps.checks, healthRegistration{name: "redis", critical: false, ping: storage.Ping})

	default:
		return fail(fmt.Errorf("unsupported cart storage: %q", cfg.CartStorage))
	}

	notifiers, notifierClosers, err := buildNotifiers(cfg, logger)
	closers = append(closers, notifierClosers...)
	if err != nil {
		return fail(err)
	}
	deps.notifier = notifiers

	deps.closeFn = closeAll
	return deps, nil
}

// seedIfEmpty наполняет пустой каталог встроенными товарами.
func seedIfEmpty(ctx context.Context, store catalog.Store, logger *log.Entry) error {
	_, err := catalog.Seed(ctx, store, logger.WithField("component", "catalog-seed"))
	if err == nil || errors.Is(err, domain.ErrCatalogNotEmpty) {
		return nil
	}
	return fmt.Errorf("seed catalog: %w", err)
}

// buildNotifiers собирает notify.Multi из cfg.Notifiers.
// Недоступная Kafka не мешает старту: витрина работает без событий.
func buildNotifiers(cfg Config, logger *log.Entry) (notify.Multi, []func() error, error) {
	var (
		notifiers notify.Multi
		closers   []func() error
	)

	for _, name := range cfg.NotifierList() {
		switch name {
		case NotifierLog:
			notifiers = append(notifiers, notify.NewLogNotifier(logger.WithField("component", "log-notifier")))

		case NotifierSendGrid:
			sender, err := mail.NewSendGridNotifier(mail.Config{
				APIKey:       cfg.SendGridAPIKey,
				FromEmail:    cfg.MailFrom,
				FromName:     cfg.MailFromName,
				AppURL:       cfg.AppURL,
				SupportEmail: cfg.SupportEmail,
			}, logger.WithField("component", "sendgrid-notifier"))
			if err != nil {
				return nil, closers, fmt.Errorf("init sendgrid notifier: %w", err)
			}
			notifiers = append(notifiers, withRetry(NotifierSendGrid, sender, cfg, logger, mail.ErrRejected, mail.ErrRecipientMissing))

		case NotifierKafka:
			producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
			if err != nil || producer == nil {
				continue
			}
			closers = append(closers, func() error {
				closeKafka(producer, logger)
				return nil
			})
			notifiers = append(notifiers, withRetry(NotifierKafka, kafka.NewOrderPlacedNotifier(producer, cfg.KafkaTopic), cfg, logger))

		default:
			return nil, closers, fmt.Errorf("unsupported notifier: %q", name)
		}
	}

	return notifiers, closers, nil
}

// withRetry оборачивает внешний notifier повторами и circuit breaker.
func withRetry(name string, next domain.Notifier, cfg Config, logger *log.Entry, permanent ...error) domain.Notifier {
	retryCfg := notify.DefaultRetryConfig()
	if cfg.NotifyMaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.NotifyMaxAttempts
	}
	retryCfg.Permanent = permanent

	entry := logger.WithField("notifier", name)
	breaker := notify.NewCircuitBreaker(name, 5, 30*time.Second, entry)
	return notify.NewRetrying(next, retryCfg, entry, notify.WithCircuitBreaker(breaker))
}
