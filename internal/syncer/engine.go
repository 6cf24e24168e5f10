// Package syncer delivers queued meter readings to the remote system and records
// the per-reading outcome in the queue.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/logging"
	"go.uber.org/zap"
)

const defaultFlushTimeout = 5 * time.Second

// Queue is the part of the reading repository the engine works against
type Queue interface {
	Readings(ctx context.Context) ([]db.MeterReading, error)
	UpdateSyncStatus(ctx context.Context, readingID string, status db.SyncStatus) error
	SaveLastSyncTime(ctx context.Context, t time.Time) error
	RemoveSyncedReadings(ctx context.Context) (int, error)
}

// OnlineChecker answers whether the network is usable right now
type OnlineChecker interface {
	CheckOnlineStatus(ctx context.Context) bool
}

// Engine drains the pending readings of the queue. It does no locking of its own;
// callers must not run two syncs against the same queue at once.
type Engine struct {
	queue        Queue
	checker      OnlineChecker
	deliverer    Deliverer
	logger       *zap.Logger
	now          func() time.Time
	flushTimeout time.Duration
}

// NewEngine creates a new sync engine
func NewEngine(queue Queue, checker OnlineChecker, deliverer Deliverer, logger *zap.Logger) *Engine {
	return &Engine{
		queue:        queue,
		checker:      checker,
		deliverer:    deliverer,
		logger:       logger,
		now:          time.Now,
		flushTimeout: defaultFlushTimeout,
	}
}

// SyncPendingReadings attempts to deliver every pending reading once, in queue order.
//
// A reading that fails delivery is marked error and the run continues. Cancelling
// ctx stops the run before the next reading; readings already resolved keep their
// status, the rest stay pending, and the result carries ErrorCountAborted (or
// ErrorCountTimeout when ctx hit its deadline).
func (e *Engine) SyncPendingReadings(ctx context.Context) (result Result) {
	log := logging.WithSyncID(e.logger, uuid.New().String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected error during sync process", zap.Any("panic", r))
			result = ExceptionResult()
		}
	}()

	if ctx.Err() != nil {
		return interrupted(ctx)
	}

	if !e.checker.CheckOnlineStatus(ctx) {
		// a check cut short by ctx is not an offline answer
		if ctx.Err() != nil {
			return interrupted(ctx)
		}
		log.Info("device offline, skipping sync")
		return OfflineResult()
	}

	readings, err := e.queue.Readings(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return interrupted(ctx)
		}
		log.Error("failed to load reading queue", zap.Error(err))
		return ExceptionResult()
	}

	pendingCount := db.CountPending(readings)
	if pendingCount == 0 {
		e.saveLastSyncTime(ctx, log)
		log.Info("no pending readings to sync")
		return CompletedResult(0, 0)
	}

	log.Info("starting sync", zap.Int("pending_count", pendingCount))

	syncedCount := 0
	errorCount := 0
	for _, reading := range readings {
		if reading.SyncStatus != db.SyncStatusPending {
			continue
		}
		if ctx.Err() != nil {
			log.Warn("sync interrupted",
				zap.Int("synced_count", syncedCount),
				zap.Int("error_count", errorCount),
				zap.Error(ctx.Err()))
			return interrupted(ctx)
		}

		readingLog := logging.WithReadingID(log, reading.ID)

		deliverErr := e.deliver(ctx, reading)
		if deliverErr != nil && ctx.Err() != nil {
			readingLog.Warn("sync interrupted during delivery",
				zap.Int("synced_count", syncedCount),
				zap.Int("error_count", errorCount),
				zap.Error(deliverErr))
			return interrupted(ctx)
		}

		if deliverErr == nil {
			if err := e.flushStatus(ctx, reading.ID, db.SyncStatusSynced); err != nil {
				readingLog.Error("failed to record synced status", zap.Error(err))
				e.markError(ctx, readingLog, reading.ID)
				errorCount++
				continue
			}
			readingLog.Debug("reading synced")
			syncedCount++
			continue
		}

		if errors.Is(deliverErr, ErrDeliveryRejected) {
			readingLog.Warn("reading rejected by remote", zap.Error(deliverErr))
		} else {
			readingLog.Error("error syncing reading", zap.Error(deliverErr))
		}
		e.markError(ctx, readingLog, reading.ID)
		errorCount++
	}

	e.saveLastSyncTime(ctx, log)

	if errorCount == 0 && syncedCount > 0 {
		removed, err := e.queue.RemoveSyncedReadings(ctx)
		if err != nil {
			log.Error("failed to remove synced readings", zap.Error(err))
		} else {
			log.Debug("removed synced readings", zap.Int("removed_count", removed))
		}
	}

	log.Info("sync finished",
		zap.Int("synced_count", syncedCount),
		zap.Int("error_count", errorCount))

	return CompletedResult(syncedCount, errorCount)
}

func (e *Engine) deliver(ctx context.Context, reading db.MeterReading) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliverer panicked: %v", r)
		}
	}()
	return e.deliverer.Deliver(ctx, reading)
}

// flushStatus persists a per-reading outcome even if ctx is cancelled meanwhile, so
// an interrupted run never loses the status of a reading that was already delivered
func (e *Engine) flushStatus(ctx context.Context, readingID string, status db.SyncStatus) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.flushTimeout)
	defer cancel()
	return e.queue.UpdateSyncStatus(flushCtx, readingID, status)
}

func (e *Engine) markError(ctx context.Context, log *zap.Logger, readingID string) {
	if err := e.flushStatus(ctx, readingID, db.SyncStatusError); err != nil {
		log.Error("failed to update reading status", zap.Error(err))
	}
}

func (e *Engine) saveLastSyncTime(ctx context.Context, log *zap.Logger) {
	if err := e.queue.SaveLastSyncTime(ctx, e.now()); err != nil {
		log.Error("error saving last sync time", zap.Error(err))
	}
}

func interrupted(ctx context.Context) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimedOutResult()
	}
	return AbortedResult()
}
