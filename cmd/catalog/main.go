package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/vladislavdragonenkov/audiophile/internal/catalog"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/memory"
	"github.com/vladislavdragonenkov/audiophile/internal/storage/postgres"
	"github.com/vladislavdragonenkov/audiophile/internal/version"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
)

// storeOpener открывает каталог выбранного драйвера; closeFn освобождает подключение.
type storeOpener func(ctx context.Context, driver, dsn string, migrate bool) (store catalog.Store, closeFn func() error, err error)

func openStore(ctx context.Context, driver, dsn string, migrate bool) (catalog.Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case driverMemory:
		store, err := memory.NewProductCatalog()
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case driverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, nil, fmt.Errorf("postgres driver requires --dsn or STOREFRONT_POSTGRES_DSN")
		}
		pg, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		if migrate {
			if err := pg.MigrateUp(ctx, 0); err != nil {
				_ = pg.Close()
				return nil, nil, fmt.Errorf("migrate up: %w", err)
			}
		}
		return postgres.NewProductRepository(pg), pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver: %s (use memory|postgres)", driver)
	}
}

func newCommand(out io.Writer, open storeOpener, logger *log.Entry) *cli.Command {
	withStore := func(ctx context.Context, cmd *cli.Command, fn func(catalog.Store) error) error {
		store, closeFn, err := open(ctx, cmd.String("driver"), cmd.String("dsn"), cmd.Bool("migrate"))
		if err != nil {
			return err
		}
		defer func() {
			if err := closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close catalog store")
			}
		}()
		return fn(store)
	}

	return &cli.Command{
		Name:    "catalog",
		Usage:   "управление каталогом товаров витрины",
		Version: version.GetVersion(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Value:   driverPostgres,
				Usage:   "storage driver: memory|postgres",
				Sources: cli.EnvVars("STOREFRONT_STORAGE_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL DSN",
				Sources: cli.EnvVars("STOREFRONT_POSTGRES_DSN"),
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Value: true,
				Usage: "apply pending migrations before the command",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "наполнить пустой каталог встроенными товарами",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "clear the catalog before seeding",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(ctx, cmd, func(store catalog.Store) error {
						if cmd.Bool("reset") {
							if _, err := catalog.Clear(ctx, store, logger); err != nil {
								return err
							}
						}
						seeded, err := catalog.Seed(ctx, store, logger)
						if err != nil {
							return err
						}
						_, err = fmt.Fprintf(out, "seeded %d products\n", len(seeded))
						return err
					})
				},
			},
			{
				Name:  "clear",
				Usage: "удалить все товары каталога",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(ctx, cmd, func(store catalog.Store) error {
						n, err := catalog.Clear(ctx, store, logger)
						if err != nil {
							return err
						}
						_, err = fmt.Fprintf(out, "deleted %d products\n", n)
						return err
					})
				},
			},
			{
				Name:  "list",
				Usage: "вывести товары каталога",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "headphones|speakers|earphones",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print products as JSON",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withStore(ctx, cmd, func(store catalog.Store) error {
						var (
							products []domain.Product
							err      error
						)
						if category := cmd.String("category"); category != "" {
							products, err = store.ListByCategory(ctx, domain.Category(category))
						} else {
							products, err = store.List(ctx)
						}
						if err != nil {
							return err
						}
						if cmd.Bool("json") {
							enc := json.NewEncoder(out)
							enc.SetIndent("", "  ")
							return enc.Encode(products)
						}
						return printProducts(out, products)
					})
				},
			},
		},
	}
}

func printProducts(out io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SLUG\tCATEGORY\tPRICE\tNEW")
	for _, p := range products {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", p.Slug, p.Category, p.Price.StringFixed(2), p.New)
	}
	return tw.Flush()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	logger := log.WithField("component", "catalog-cli")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand(os.Stdout, openStore, logger).Run(ctx, os.Args); err != nil {
		logger.WithError(err).Error("catalog command failed")
		cancel()
		os.Exit(1)
	}
}
