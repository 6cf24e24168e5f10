package main

import (
	"github.com/septivank/meter-reading-sync/internal/config"
	"github.com/septivank/meter-reading-sync/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
