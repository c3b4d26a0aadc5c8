package app

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/audiophile/internal/health"
	"github.com/vladislavdragonenkov/audiophile/internal/notify"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	defer func() { _ = deps.closeFn() }()

	if deps.orders == nil || deps.catalog == nil || deps.cartStorage == nil {
		t.Fatalf("memory dependencies must be initialized: %+v", deps)
	}
	if len(deps.checks) != 0 {
		t.Fatalf("memory storage registers no health checks, got %d", len(deps.checks))
	}

	products, err := deps.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("catalog should be seeded by default")
	}

	multi, ok := deps.notifier.(notify.Multi)
	if !ok || len(multi) != 1 {
		t.Fatalf("expected single log notifier, got %#v", deps.notifier)
	}
}

func TestInitRuntimeDependencies_NoSeed(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CatalogAutoSeed = false

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "no-seed"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies failed: %v", err)
	}
	products, err := deps.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("catalog must stay empty, got %d products", len(products))
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres

	_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StorageDriver = "sqlite"

	_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "unsupported-driver"))
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestInitRuntimeDependencies_UnsupportedCartStorage(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CartStorage = "memcached"

	_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "unsupported-cart"))
	if err == nil || !strings.Contains(err.Error(), "unsupported cart storage") {
		t.Fatalf("expected unsupported cart storage error, got %v", err)
	}
}

func TestInitRuntimeDependencies_RedisRegistersOptionalCheck(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CartStorage = CartStorageRedis
	cfg.RedisAddr = "127.0.0.1:1"

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "redis-cart"))
	if err != nil {
		t.Fatalf("unreachable redis must not fail startup: %v", err)
	}
	defer func() { _ = deps.closeFn() }()

	h := healthcheck.NewHandler("test")
	deps.registerChecks(h)
	resp := h.Evaluate(context.Background())
	if resp.Status != healthcheck.StatusDegraded {
		t.Fatalf("unreachable redis must degrade health, got %s", resp.Status)
	}
	if check := resp.Checks["redis"]; check.Critical {
		t.Fatal("redis check must not be critical")
	}
}

func TestBuildNotifiers(t *testing.T) {
	logger := log.WithField("test", "notifiers")

	t.Run("empty list", func(t *testing.T) {
		notifiers, closers, err := buildNotifiers(Config{}, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifiers) != 0 || len(closers) != 0 {
			t.Fatalf("expected no notifiers, got %d", len(notifiers))
		}
	})

	t.Run("sendgrid requires key", func(t *testing.T) {
		_, _, err := buildNotifiers(Config{Notifiers: NotifierSendGrid}, logger)
		if err == nil {
			t.Fatal("expected error for sendgrid without api key")
		}
	})

	t.Run("sendgrid with key", func(t *testing.T) {
		notifiers, _, err := buildNotifiers(Config{
			Notifiers:      "log,sendgrid",
			SendGridAPIKey: "SG.test",
			MailFrom:       "orders@audiophile.test",
		}, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifiers) != 2 {
			t.Fatalf("expected 2 notifiers, got %d", len(notifiers))
		}
		if _, ok := notifiers[1].(*notify.Retrying); !ok {
			t.Fatalf("sendgrid notifier must be wrapped with retries, got %T", notifiers[1])
		}
	})

	t.Run("unreachable kafka is skipped", func(t *testing.T) {
		notifiers, closers, err := buildNotifiers(Config{
			Notifiers:    "log,kafka",
			KafkaBrokers: "127.0.0.1:1",
		}, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifiers) != 1 || len(closers) != 0 {
			t.Fatalf("expected only log notifier, got %d notifiers", len(notifiers))
		}
	})

	t.Run("unknown notifier", func(t *testing.T) {
		_, _, err := buildNotifiers(Config{Notifiers: "pigeon"}, logger)
		if err == nil {
			t.Fatal("expected error for unknown notifier")
		}
	})
}

func TestSeedIfEmpty_Idempotent(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), log.WithField("test", "seed"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies failed: %v", err)
	}

	before, _ := deps.catalog.List(context.Background())
	if err := seedIfEmpty(context.Background(), deps.catalog, log.WithField("test", "seed")); err != nil {
		t.Fatalf("second seed must be a no-op: %v", err)
	}
	after, _ := deps.catalog.List(context.Background())
	if len(before) != len(after) {
		t.Fatalf("catalog size changed: %d -> %d", len(before), len(after))
	}

	p, err := deps.catalog.GetBySlug(context.Background(), "xx99-mark-two-headphones")
	if err != nil {
		t.Fatalf("seeded product lookup: %v", err)
	}
	if p.Category != domain.CategoryHeadphones {
		t.Fatalf("unexpected category %q", p.Category)
	}
}
