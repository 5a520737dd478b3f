package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weftworks/weft/pkg/api"
	"github.com/weftworks/weft/pkg/codehash"
	"github.com/weftworks/weft/pkg/config"
	"github.com/weftworks/weft/pkg/contentstore"
	"github.com/weftworks/weft/pkg/domain"
	"github.com/weftworks/weft/pkg/funds"
	"github.com/weftworks/weft/pkg/ledger"
	"github.com/weftworks/weft/pkg/market"
	"github.com/weftworks/weft/pkg/registry"
	"github.com/weftworks/weft/pkg/sched"
	"github.com/weftworks/weft/pkg/telemetry"
	"github.com/weftworks/weft/pkg/vault"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("Starting Weft API", "port", cfg.Port)

	// Storage adapters
	var reg registry.Registry
	if cfg.RedisAddr != "" {
		r, err := registry.NewRedisRegistry(cfg.RedisAddr, 0, "")
		if err != nil {
			logger.Error("Failed to connect template registry to redis", "error", err)
			os.Exit(1)
		}
		reg = r
	} else {
		reg = registry.NewMemoryRegistry()
	}

	store, err := contentstore.NewLocalStore(cfg.ContentPath)
	if err != nil {
		logger.Error("Failed to initialize content store", "error", err)
		os.Exit(1)
	}
	deployments := contentstore.NewDeployments(store)
	verifier := codehash.NewVerifier(deployments)

	bank := funds.NewMemoryBank()
	events := telemetry.NewMemoryPublisher()

	bridge := &vault.Bridge{
		Scheduler: sched.NewMemoryScheduler(),
		Bank:      bank,
		Fee:       domain.Amount(cfg.SchedulingFee),
		Events:    events,
	}

	mkt, err := market.New(domain.AccountID(cfg.PlatformOwner), domain.AccountID(cfg.FeeCollector), int64(cfg.FeeBps), bank)
	if err != nil {
		logger.Error("Invalid marketplace configuration", "error", err)
		os.Exit(1)
	}

	led := ledger.New(reg, verifier, bank, mkt, bridge,
		ledger.WithEvents(events),
		ledger.WithMetrics(telemetry.NewPrometheusMetrics()),
		ledger.WithLogger(telemetry.NewSlogAdapterWith(logger)),
	)

	server := &api.Server{
		Ledger:      led,
		Deployments: deployments,
		Events:      events,
		Logger:      logger,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exited")
}
