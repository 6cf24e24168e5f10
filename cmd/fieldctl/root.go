package main

import (
	"fmt"

	"github.com/septivank/meter-reading-sync/internal/config"
	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"github.com/septivank/meter-reading-sync/internal/logging"
	"github.com/septivank/meter-reading-sync/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	storeDriver string
	storePath   string
	debug       bool

	cfg    *config.Config
	logger *zap.Logger
	store  kvstore.Store
	repo   *repository.Repository
)

var rootCmd = &cobra.Command{
	Use:   "fieldctl",
	Short: "fieldctl - operate the meter reading queue on a field device",
	Long: `fieldctl records meter readings into the local queue, shows what is still
waiting for delivery and runs a sync against the configured remote.

It works on the same record store as the sync agent.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: teardownApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "record store driver (sqlite, postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(recordCmd, pendingCmd, retryCmd, syncCmd, statusCmd, themeCmd)
}

func setupApp(cmd *cobra.Command, _ []string) error {
	config.LoadEnvFile()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags override the environment
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if storePath != "" {
		cfg.Store.SQLitePath = storePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if debug {
		logger, err = logging.NewLogger(cfg.ServiceName)
	} else {
		logger, err = logging.NewCLILogger(cfg.ServiceName)
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	store, err = kvstore.Open(cmd.Context(), cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	repo = repository.NewRepository(store)
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) error {
	if logger != nil {
		_ = logger.Sync()
	}
	if store != nil {
		return store.Close()
	}
	return nil
}
