package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/postgres"
	"github.com/vladislavdragonenkov/audiophile/internal/version"
)

const defaultReplayLimit = 100

type config struct {
	brokers  []string
	topic    string
	dsn      string
	email    string
	orderIDs []string
	limit    int
	execute  bool
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

// openDependencies открывает репозиторий заказов и, в режиме execute, publisher.
var openDependencies = func(ctx context.Context, cfg config) (domain.OrderRepository, domain.Notifier, func(), error) {
	store, err := postgres.Open(ctx, cfg.dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	orders := postgres.NewOrderRepository(store)

	if !cfg.execute {
		return orders, nil, func() { _ = store.Close() }, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, version.UserAgent("events-replay"))
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}
	closeFn := func() {
		_ = producer.Close()
		_ = store.Close()
	}
	return orders, kafka.NewOrderPlacedNotifier(producer, cfg.topic), closeFn, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("order events replay failed: %v", err)
	}
}

func readConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		ordersRaw  string
		cfg        config
	)

	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: STOREFRONT_KAFKA_BROKERS)")
	fs.StringVar(&cfg.topic, "topic", kafka.TopicOrderEvents, "target topic for order.placed events")
	fs.StringVar(&cfg.dsn, "dsn", "", "Postgres DSN (fallback: STOREFRONT_POSTGRES_DSN)")
	fs.StringVar(&cfg.email, "email", "", "replay orders of this customer email")
	fs.StringVar(&ordersRaw, "orders", "", "comma-separated order ids to replay")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of orders to replay")
	fs.BoolVar(&cfg.execute, "execute", false, "publish events; default is dry-run")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("STOREFRONT_KAFKA_BROKERS")
	}
	if strings.TrimSpace(cfg.dsn) == "" {
		cfg.dsn = strings.TrimSpace(getenv("STOREFRONT_POSTGRES_DSN"))
	}

	cfg.brokers = splitList(brokersRaw)
	cfg.orderIDs = splitList(ordersRaw)
	cfg.email = strings.TrimSpace(cfg.email)

	if cfg.dsn == "" {
		return config{}, errors.New("postgres dsn is required (-dsn or STOREFRONT_POSTGRES_DSN)")
	}
	if cfg.execute && len(cfg.brokers) == 0 {
		return config{}, errors.New("kafka brokers are required in execute mode (-brokers or STOREFRONT_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.topic) == "" {
		return config{}, errors.New("topic is required")
	}
	if cfg.email == "" && len(cfg.orderIDs) == 0 {
		return config{}, errors.New("either -email or -orders is required")
	}
	if cfg.limit <= 0 {
		return config{}, errors.New("limit must be > 0")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	chunks := strings.Split(raw, ",")
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if v := strings.TrimSpace(chunk); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"topic":   cfg.topic,
		"email":   cfg.email,
		"orders":  len(cfg.orderIDs),
		"limit":   cfg.limit,
		"execute": cfg.execute,
	}).Info("starting order events replay")

	orders, publisher, closeFn, err := openDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = runReplay(ctx, cfg, orders, publisher)
	return err
}

func runReplay(ctx context.Context, cfg config, orders domain.OrderRepository, publisher domain.Notifier) (replayStats, error) {
	var stats replayStats
	if orders == nil {
		return stats, errors.New("order repository is required")
	}
	if cfg.execute && publisher == nil {
		return stats, errors.New("publisher is required in execute mode")
	}

	candidates, skipped, err := collectOrders(ctx, cfg, orders)
	if err != nil {
		return stats, err
	}
	stats.skipped = skipped

	for _, order := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.processed++

		if !cfg.execute {
			log.WithFields(log.Fields{
				"order_id":     order.OrderID,
				"target_topic": cfg.topic,
				"created_at":   order.CreatedAt,
			}).Info("order event replay candidate")
			stats.replayed++
			continue
		}

		if err := publisher.Notify(ctx, domain.NewConfirmation(order)); err != nil {
			return stats, fmt.Errorf("publish order %s: %w", order.OrderID, err)
		}
		stats.replayed++
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.processed,
		"replayed":  stats.replayed,
		"skipped":   stats.skipped,
	}).Info("order events replay finished")

	return stats, nil
}

// collectOrders собирает заказы по id и email без повторов, не больше cfg.limit.
func collectOrders(ctx context.Context, cfg config, orders domain.OrderRepository) ([]domain.Order, int, error) {
	var (
		out     []domain.Order
		skipped int
		seen    = make(map[string]struct{})
	)
	add := func(o domain.Order) {
		if _, ok := seen[o.OrderID]; ok || len(out) >= cfg.limit {
			return
		}
		seen[o.OrderID] = struct{}{}
		out = append(out, o)
	}

	for _, id := range cfg.orderIDs {
		order, err := orders.Get(ctx, id)
		if errors.Is(err, domain.ErrOrderNotFound) {
			skipped++
			log.WithField("order_id", id).Warn("skip unknown order")
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("get order %s: %w", id, err)
		}
		add(order)
	}

	if cfg.email != "" {
		byEmail, err := orders.ListByEmail(ctx, cfg.email, cfg.limit)
		if err != nil {
			return nil, skipped, fmt.Errorf("list orders by email: %w", err)
		}
		for _, order := range byEmail {
			add(order)
		}
	}

	return out, skipped, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
