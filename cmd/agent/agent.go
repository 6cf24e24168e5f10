package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/septivank/meter-reading-sync/internal/app"
	"github.com/septivank/meter-reading-sync/internal/config"
	"github.com/septivank/meter-reading-sync/internal/connectivity"
	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"github.com/septivank/meter-reading-sync/internal/repository"
	"github.com/septivank/meter-reading-sync/internal/service"
	"github.com/septivank/meter-reading-sync/internal/syncer"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startAgent(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	platform connectivity.Platform,
	orchestrator *service.Orchestrator,
) {
	// Context for background loops, cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	var syncFn connectivity.SyncFunc
	if cfg.Sync.AutoSync {
		syncFn = orchestrator.AutoSync
	}
	observer := connectivity.NewObserver(platform, logger, cfg.Connectivity.Debounce, syncFn)

	var (
		unsubscribe func()
		wg          sync.WaitGroup
	)

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting sync agent",
				zap.String("device_id", cfg.Sync.DeviceID),
				zap.String("delivery_mode", cfg.Sync.DeliveryMode),
				zap.Bool("auto_sync", cfg.Sync.AutoSync))

			unsubscribe = observer.Subscribe(orchestrator.HandleConnectivity)

			wg.Add(2)
			go func() {
				defer wg.Done()
				orchestrator.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				manualSyncLoop(ctx, orchestrator, logger)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			if unsubscribe != nil {
				unsubscribe()
			}
			cancel()
			orchestrator.Close()
			wg.Wait()
			logger.Info("sync agent stopped gracefully")
			return nil
		},
	})
}

// manualSyncLoop runs a sync request each time a manual sync signal arrives
func manualSyncLoop(ctx context.Context, orchestrator *service.Orchestrator, logger *zap.Logger) {
	signals := manualSyncSignals()
	if len(signals) == 0 {
		<-ctx.Done()
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			logger.Info("manual sync requested")
			result, err := orchestrator.RequestSync(ctx)
			if err != nil {
				logger.Warn("manual sync not completed", zap.Error(err))
				continue
			}
			logger.Info("manual sync finished",
				zap.Bool("success", result.Success),
				zap.Int("synced_count", result.SyncedCount),
				zap.Int("error_count", result.ErrorCount))
		}
	}
}

// ProvideStore opens the durable record store
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (kvstore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := kvstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing record store")
			return store.Close()
		},
	})
	return store, nil
}

// ProvideRepository creates a new repository instance
func ProvideRepository(store kvstore.Store) *repository.Repository {
	return repository.NewRepository(store)
}

// ProvideDeliverer creates the deliverer for the configured delivery mode
func ProvideDeliverer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (syncer.Deliverer, error) {
	deliverer, closeFn, err := app.NewDeliverer(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closeFn()
		},
	})
	return deliverer, nil
}

// ProvidePlatform creates the polling connectivity platform
func ProvidePlatform(cfg *config.Config, logger *zap.Logger) connectivity.Platform {
	return connectivity.NewProbePlatform(
		cfg.Connectivity.ProbeAddress,
		cfg.Connectivity.ProbeTimeout,
		cfg.Connectivity.PollInterval,
		logger,
	)
}

// ProvideChecker creates the observer used for one-shot online checks
func ProvideChecker(platform connectivity.Platform, cfg *config.Config, logger *zap.Logger) *connectivity.Observer {
	return connectivity.NewObserver(platform, logger, cfg.Connectivity.Debounce, nil)
}

// ProvideEngine creates a new sync engine instance
func ProvideEngine(
	repo *repository.Repository,
	checker *connectivity.Observer,
	deliverer syncer.Deliverer,
	logger *zap.Logger,
) *syncer.Engine {
	return syncer.NewEngine(repo, checker, deliverer, logger)
}

// ProvideOrchestrator creates the orchestrator and logs every display update
func ProvideOrchestrator(
	engine *syncer.Engine,
	repo *repository.Repository,
	checker *connectivity.Observer,
	cfg *config.Config,
	logger *zap.Logger,
) *service.Orchestrator {
	listener := service.Listener{
		OnStatus: func(status service.Status) {
			logger.Info("sync status changed", zap.String("status", string(status)))
		},
		OnPendingCount: func(count int) {
			logger.Info("pending readings updated", zap.Int("pending_count", count))
		},
		OnLastSync: func(t time.Time) {
			logger.Info("last sync updated",
				zap.String("last_sync", timeparser.FormatClock(t)),
				zap.Time("last_sync_time", t))
		},
	}

	return service.NewOrchestrator(engine, repo, checker, listener, service.OrchestratorConfig{
		RequestTimeout:  cfg.Sync.RequestTimeout,
		HardCutoff:      cfg.Sync.HardCutoff,
		RecheckInterval: cfg.Connectivity.RecheckInterval,
	}, logger)
}
