package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/septivank/meter-reading-sync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if envPath := config.LoadEnvFile(); envPath != "" {
		fmt.Printf("Loaded environment from: %s\n", envPath)
	} else {
		fmt.Println("No .env file found, using system environment variables")
	}

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideStore,
			ProvideRepository,
			ProvideDeliverer,
			ProvidePlatform,
			ProvideChecker,
			ProvideEngine,
			ProvideOrchestrator,
		),
		fx.Invoke(startAgent),
	)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tempLogger, _ := newLogger(&config.Config{ServiceName: "meter-sync-agent"})
	tempLogger.Info("starting application...", zap.String("timeout", "30s"))

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			tempLogger.Error("APPLICATION START TIMEOUT: Failed to start within 30 seconds. Check that the record store (and RabbitMQ when SYNC_DELIVERY_MODE=amqp) is reachable.")
		}
		panic(err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("error stopping app:", err)
	}
}
