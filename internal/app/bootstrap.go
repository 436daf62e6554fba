package app

import (
	"context"
	"errors"
	"log/slog"

	"stx_nexus/internal/api"
	"stx_nexus/internal/domain"
	"stx_nexus/internal/infra"
	"stx_nexus/internal/infra/storage"
	"stx_nexus/internal/service"

	"github.com/shopspring/decimal"
)

// DefaultConfigPath is read when no path is given
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Metrics  *infra.Metrics
	Feed     domain.PriceWorker
	Registry *service.OrderRegistry
	Expiry   *service.ExpiryClock
	Server   *api.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, archive, workers)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping STX Nexus...")

	if configPath == "" {
		configPath = DefaultConfigPath
	}

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (completed order archive)
	store, err := storage.NewStorage(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Order archive initialized", slog.String("dsn", cfg.Storage.DSN))

	// 4. Metrics
	b.Metrics = infra.NewMetrics()

	// 5. Price feed
	b.Feed = b.newPriceFeed()
	slog.Info("✅ Price feed ready", slog.String("source", cfg.Price.Source), slog.String("symbol", cfg.Price.Symbol))

	// 6. Order lifecycle
	validator := infra.NewAddressValidator()
	factory := service.NewOrderFactory(validator, domain.SystemClock{})
	b.Registry = service.NewOrderRegistry(factory, b.Feed)
	b.Registry.OnCreated(func(domain.Order) { b.Metrics.RecordOrderCreated() })
	b.Registry.OnCompleted(b.archiveCompleted)

	b.Expiry = service.NewExpiryClock(b.Registry, service.DefaultTickInterval)

	// 7. HTTP API
	b.Server = api.NewServer(b.Registry, b.Feed, b.Metrics, api.Options{
		Symbol:           cfg.Price.Symbol,
		DepositAddresses: cfg.Deposit.Addresses,
		Networks:         validator.SupportedNetworks(),
		AllowedOrigins:   cfg.API.AllowedOrigins,
		Archive:          store,
	})

	return nil
}

func (b *Bootstrap) newPriceFeed() domain.PriceWorker {
	cfg := b.Config
	onUpdate := func(price decimal.Decimal) { b.Metrics.SetPrice(price) }

	if cfg.Price.Source == infra.PriceSourceStream {
		w := infra.NewBinanceStreamWorker(cfg.Price.WSURL, cfg.Price.Symbol, onUpdate)
		w.OnConnectionChange(b.Metrics.SetStreamConnected)
		return w
	}

	c := infra.NewBinancePriceClientWithConfig(onUpdate, cfg.Price.RestURL, cfg.Price.Symbol, cfg.Price.PollIntervalSec)
	c.OnError(func(error) { b.Metrics.RecordPriceError() })
	return c
}

// archiveCompleted keeps an audit copy; a failed write never undoes the completion
func (b *Bootstrap) archiveCompleted(o domain.Order) {
	b.Metrics.RecordOrderCompleted()
	if err := b.Storage.SaveCompleted(&o); err != nil {
		slog.Error("Failed to archive order", slog.String("id", o.ID), slog.Any("error", err))
	}
}

// Start launches the price feed and the countdown clock
func (b *Bootstrap) Start(ctx context.Context) error {
	if b.Registry == nil {
		return errors.New("bootstrap not initialized")
	}

	if err := b.Feed.Start(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "✅ Price feed started")

	if err := b.Expiry.Start(ctx); err != nil {
		b.Feed.Stop()
		return err
	}
	slog.InfoContext(ctx, "✅ Order countdown started")
	return nil
}

// Shutdown stops workers and closes the archive
func (b *Bootstrap) Shutdown() {
	if b.Expiry != nil {
		b.Expiry.Stop()
	}
	if b.Feed != nil {
		b.Feed.Stop()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close archive", slog.Any("error", err))
		}
	}

	stats := b.Registry.Stats()
	slog.Info("👋 Shutdown complete",
		slog.Int("pending", stats.Pending),
		slog.Int("history", stats.History),
	)
}
