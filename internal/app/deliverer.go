// Package app builds the components shared by the agent and the field CLI.
package app

import (
	"fmt"

	"github.com/septivank/meter-reading-sync/internal/config"
	"github.com/septivank/meter-reading-sync/internal/mq"
	"github.com/septivank/meter-reading-sync/internal/syncer"
	"go.uber.org/zap"
)

// NewDeliverer returns the deliverer selected by cfg.Sync.DeliveryMode and a function
// releasing what it holds
func NewDeliverer(cfg *config.Config, logger *zap.Logger) (syncer.Deliverer, func() error, error) {
	switch cfg.Sync.DeliveryMode {
	case config.DeliveryModeSimulated:
		logger.Info("using simulated delivery",
			zap.Duration("item_delay", cfg.Sync.ItemDelay),
			zap.Float64("success_rate", cfg.Sync.SuccessRate))
		return syncer.NewSimulatedDeliverer(cfg.Sync.ItemDelay, cfg.Sync.SuccessRate), func() error { return nil }, nil

	case config.DeliveryModeAMQP:
		conn, err := mq.Dial(logger, cfg.RabbitMQ.URL, cfg.Sync.DeviceID)
		if err != nil {
			return nil, nil, err
		}
		publisher, err := mq.NewPublisher(
			conn,
			cfg.RabbitMQ.IngestExchange,
			cfg.RabbitMQ.IngestRoutingKey,
			cfg.Sync.DeviceID,
			cfg.Sync.DeliveryTimeout,
			logger,
		)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		closeFn := func() error {
			if err := publisher.Close(); err != nil {
				logger.Error("failed to close publisher", zap.Error(err))
			}
			return conn.Close()
		}
		return publisher, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown delivery mode %q", cfg.Sync.DeliveryMode)
	}
}
