package logging

import (
	"go.uber.org/zap"
)

// NewLogger creates a new structured logger
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// NewCLILogger creates a console logger for interactive tools; only warnings and above are shown
func NewCLILogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}
	return config.Build()
}

// WithSyncID returns a logger with sync_id field
func WithSyncID(logger *zap.Logger, syncID string) *zap.Logger {
	return logger.With(zap.String("sync_id", syncID))
}

// WithReadingID returns a logger with reading_id field
func WithReadingID(logger *zap.Logger, readingID string) *zap.Logger {
	return logger.With(zap.String("reading_id", readingID))
}
