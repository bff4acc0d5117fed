package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/codexac/coin-ledger/src/internal/adapter/events"
	"github.com/codexac/coin-ledger/src/internal/adapter/http/controller"
	"github.com/codexac/coin-ledger/src/internal/adapter/http/middleware"
	"github.com/codexac/coin-ledger/src/internal/adapter/http/router"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/postgres"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/codexac/coin-ledger/src/internal/adapter/repository/sqlite"
	"github.com/codexac/coin-ledger/src/internal/config"
	"github.com/codexac/coin-ledger/src/internal/logger"
	"github.com/codexac/coin-ledger/src/internal/usecase/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}
	defer store.Close()

	hub := events.NewHub()
	publishers := []repo_interfaces.EventPublisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}

	ledger := services.NewLedgerService(store, events.NewMultiPublisher(publishers...), services.LedgerSettings{
		FallbackAddress:    cfg.FallbackAddress,
		MiningReward:       cfg.MiningReward,
		MiningCooldown:     cfg.MiningCooldown,
		TransferFeeRate:    cfg.TransferFeeRate,
		DailyTransferQuota: cfg.DailyTransferQuota,
		Location:           time.Local,
	})

	accrual := services.NewStakingAccrualJob(store, ledger, cfg.StakeAccrualTimeout, cfg.StakeAccrualWorkers)
	go services.NewAccrualScheduler(accrual, time.Local).Run(ctx)

	mux := router.New(
		middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey),
		controller.NewAccountController(services.NewAccountService(store)),
		controller.NewLedgerController(ledger),
		controller.NewTransactionController(services.NewQueryService(store)),
		controller.NewLedgerFeedController(hub, store),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logger.Fields{"addr": cfg.HTTPAddr, "driver": cfg.DatabaseDriver})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server stopped", err, nil)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", err, nil)
	}
	logger.Info("coin ledger stopped", nil)
}

func openStore(ctx context.Context, cfg config.Config) (repo_interfaces.LedgerStore, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.NewLedgerStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
