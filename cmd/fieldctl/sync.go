package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/septivank/meter-reading-sync/internal/app"
	"github.com/septivank/meter-reading-sync/internal/connectivity"
	"github.com/septivank/meter-reading-sync/internal/service"
	"github.com/septivank/meter-reading-sync/internal/syncer"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver pending readings now",
	Long: `Run one sync of the pending readings, bounded by SYNC_REQUEST_TIMEOUT and
SYNC_HARD_CUTOFF. Nothing is attempted while the device is offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		deliverer, closeDeliverer, err := app.NewDeliverer(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeDeliverer(); err != nil {
				logger.Warn("failed to close deliverer", zap.Error(err))
			}
		}()

		checker := newChecker()
		engine := syncer.NewEngine(repo, checker, deliverer, logger)
		orchestrator := service.NewOrchestrator(engine, repo, checker, service.Listener{
			OnStatus: func(status service.Status) {
				fmt.Printf("status: %s\n", status)
			},
			OnPendingCount: func(count int) {
				fmt.Printf("pending readings: %d\n", count)
			},
			OnLastSync: func(t time.Time) {
				fmt.Printf("last sync: %s\n", timeparser.FormatClock(t))
			},
		}, service.OrchestratorConfig{
			RequestTimeout: cfg.Sync.RequestTimeout,
			HardCutoff:     cfg.Sync.HardCutoff,
		}, logger)
		defer orchestrator.Close()

		if !orchestrator.Recheck(ctx) {
			fmt.Println("Device is offline, readings stay queued")
			return nil
		}

		start := time.Now()
		result, err := orchestrator.RequestSync(ctx)
		switch {
		case errors.Is(err, service.ErrOffline):
			fmt.Println("Device is offline, readings stay queued")
			return nil
		case err != nil:
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println()
		fmt.Printf("Finished in %v (%s)\n", time.Since(start).Round(time.Millisecond), result.Outcome)
		fmt.Printf("Synced: %d\n", result.SyncedCount)
		if result.ErrorCount > 0 {
			fmt.Printf("Failed: %d (use 'fieldctl retry --all' to queue them again)\n", result.ErrorCount)
		}
		if !result.Success {
			return fmt.Errorf("sync did not complete: %s", result.Outcome)
		}
		return nil
	},
}

func newChecker() *connectivity.Observer {
	platform := connectivity.NewProbePlatform(
		cfg.Connectivity.ProbeAddress,
		cfg.Connectivity.ProbeTimeout,
		cfg.Connectivity.PollInterval,
		logger,
	)
	return connectivity.NewObserver(platform, logger, cfg.Connectivity.Debounce, nil)
}
