package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/septivank/meter-reading-sync/internal/syncer"
	"go.uber.org/zap"
)

// Status is the sync state shown to the operator
type Status string

const (
	StatusOnline    Status = "online"
	StatusOffline   Status = "offline"
	StatusSyncing   Status = "syncing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var (
	// ErrOffline is returned by RequestSync when there is no connection; nothing is attempted
	ErrOffline = errors.New("device is offline")
	// ErrSyncInProgress is returned when another sync run still holds the queue
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrHardCutoff is returned when a request was abandoned at the hard cutoff
	ErrHardCutoff = errors.New("sync abandoned at hard cutoff")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("orchestrator closed")
)

// Engine runs one sync over the reading queue
type Engine interface {
	SyncPendingReadings(ctx context.Context) syncer.Result
}

// QueueStats exposes the figures shown next to the sync control
type QueueStats interface {
	PendingCount(ctx context.Context) (int, error)
	LastSyncTime(ctx context.Context) (time.Time, bool, error)
}

// Listener receives UI-facing updates. Any field may be nil.
type Listener struct {
	OnStatus       func(Status)
	OnPendingCount func(int)
	OnLastSync     func(time.Time)
}

// OrchestratorConfig bounds a manual sync request
type OrchestratorConfig struct {
	// RequestTimeout bounds the engine run; on expiry the request settles as timed out
	RequestTimeout time.Duration
	// HardCutoff bounds the whole request; on expiry status is forced to error
	HardCutoff time.Duration
	// RecheckInterval is how often Run re-queries connectivity
	RecheckInterval time.Duration
}

// DefaultOrchestratorConfig returns the stock request bounds
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		RequestTimeout:  8 * time.Second,
		HardCutoff:      10 * time.Second,
		RecheckInterval: 30 * time.Second,
	}
}

// Orchestrator exposes "sync now", triggers auto-sync on reconnect and keeps
// the operator-facing status consistent with engine outcomes.
//
// At most one engine run is active at a time across RequestSync and AutoSync; the
// guard is released when the engine actually returns, not when a request gives up
// waiting for it.
//
// Status callbacks are delivered one at a time, in the order the status changed.
// A Listener may read Status but must not call back into methods that change it.
type Orchestrator struct {
	engine   Engine
	stats    QueueStats
	checker  syncer.OnlineChecker
	listener Listener
	cfg      OrchestratorConfig
	logger   *zap.Logger
	now      func() time.Time

	running atomic.Bool
	runs    sync.WaitGroup

	// held across a status change and its callback
	deliverMu sync.Mutex

	mu     sync.Mutex
	status Status
	online bool
	closed bool
	active *activeRun
}

// activeRun is the engine run holding the guard
type activeRun struct {
	cancel context.CancelFunc
}

// NewOrchestrator creates a new orchestrator. It starts offline until connectivity
// is reported through HandleConnectivity or Recheck.
func NewOrchestrator(
	engine Engine,
	stats QueueStats,
	checker syncer.OnlineChecker,
	listener Listener,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	defaults := DefaultOrchestratorConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.HardCutoff <= 0 {
		cfg.HardCutoff = defaults.HardCutoff
	}
	if cfg.RecheckInterval <= 0 {
		cfg.RecheckInterval = defaults.RecheckInterval
	}
	return &Orchestrator{
		engine:   engine,
		stats:    stats,
		checker:  checker,
		listener: listener,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		status:   StatusOffline,
	}
}

// Status returns the current operator-facing status
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Online returns the last known connectivity
func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// HandleConnectivity records a debounced connectivity change
func (o *Orchestrator) HandleConnectivity(online bool) {
	o.transition(func(current Status) (Status, bool) {
		o.online = online
		if current == StatusSyncing {
			return current, false
		}
		if online {
			return StatusOnline, true
		}
		return StatusOffline, true
	})
}

// Recheck queries connectivity once and moves between online and offline. A status
// of syncing is left alone, and completed/error only give way to offline.
func (o *Orchestrator) Recheck(ctx context.Context) bool {
	online := o.checker.CheckOnlineStatus(ctx)

	o.transition(func(current Status) (Status, bool) {
		o.online = online
		switch {
		case current == StatusSyncing:
			return current, false
		case online && current == StatusOffline:
			return StatusOnline, true
		case !online && current != StatusOffline:
			return StatusOffline, true
		}
		return current, false
	})
	return online
}

// RequestSync runs one bounded sync. It returns ErrOffline or ErrSyncInProgress
// without touching the status when the request cannot start.
func (o *Orchestrator) RequestSync(ctx context.Context) (syncer.Result, error) {
	if !o.Online() {
		return syncer.OfflineResult(), ErrOffline
	}
	reqCtx, release, err := o.acquire(ctx)
	if err != nil {
		return syncer.Result{}, err
	}
	defer release()

	o.setStatus(StatusSyncing)

	hardCtx, hardCancel := context.WithTimeout(reqCtx, o.cfg.HardCutoff)
	defer hardCancel()
	engineCtx, engineCancel := context.WithTimeout(reqCtx, o.cfg.RequestTimeout)
	defer engineCancel()

	done := o.startEngine(engineCtx)

	var result syncer.Result
	select {
	case result = <-done:
	case <-engineCtx.Done():
		if reqCtx.Err() != nil {
			result = syncer.AbortedResult()
		} else {
			o.logger.Warn("sync request timed out", zap.Duration("timeout", o.cfg.RequestTimeout))
			result = syncer.TimedOutResult()
		}
	case <-hardCtx.Done():
		if reqCtx.Err() != nil {
			result = syncer.AbortedResult()
			break
		}
		o.logger.Error("sync operation exceeded hard cutoff, aborting", zap.Duration("cutoff", o.cfg.HardCutoff))
		o.setStatus(StatusError)
		return syncer.TimedOutResult(), ErrHardCutoff
	}

	o.settle(hardCtx, result)
	return result, nil
}

// AutoSync runs the engine under the same guard as RequestSync, without driving the
// status. It is meant to be handed to the connectivity observer.
func (o *Orchestrator) AutoSync(ctx context.Context) {
	runCtx, release, err := o.acquire(ctx)
	if err != nil {
		o.logger.Debug("auto-sync skipped", zap.Error(err))
		return
	}
	defer release()
	ctx = runCtx

	result := <-o.startEngine(ctx)
	o.logger.Info("auto-sync finished",
		zap.Bool("success", result.Success),
		zap.Int("synced_count", result.SyncedCount),
		zap.Int("error_count", result.ErrorCount),
		zap.Stringer("outcome", result.Outcome))

	if ctx.Err() != nil {
		return
	}
	if err := o.RefreshPendingCount(ctx); err != nil {
		o.logger.Error("error updating pending count", zap.Error(err))
	}
	if last, ok, err := o.stats.LastSyncTime(ctx); err == nil && ok {
		o.notifyLastSync(last)
	}
}

// CheckAndSync refreshes the pending count and starts a sync when online with
// readings waiting
func (o *Orchestrator) CheckAndSync(ctx context.Context) (syncer.Result, error) {
	count, err := o.stats.PendingCount(ctx)
	if err != nil {
		return syncer.Result{}, err
	}
	o.notifyPendingCount(count)

	if count == 0 {
		return syncer.CompletedResult(0, 0), nil
	}
	return o.RequestSync(ctx)
}

// RefreshPendingCount recomputes the pending count and reports it
func (o *Orchestrator) RefreshPendingCount(ctx context.Context) error {
	count, err := o.stats.PendingCount(ctx)
	if err != nil {
		return err
	}
	o.notifyPendingCount(count)
	return nil
}

// LoadDisplayState reports the stored pending count and last sync time
func (o *Orchestrator) LoadDisplayState(ctx context.Context) {
	if err := o.RefreshPendingCount(ctx); err != nil {
		o.logger.Error("error loading pending readings", zap.Error(err))
		o.notifyPendingCount(0)
	}

	last, ok, err := o.stats.LastSyncTime(ctx)
	if err != nil {
		o.logger.Error("error loading last sync time", zap.Error(err))
		return
	}
	if ok {
		o.notifyLastSync(last)
	}
}

// Run loads the display state, then rechecks connectivity until ctx is done
func (o *Orchestrator) Run(ctx context.Context) {
	o.LoadDisplayState(ctx)
	o.Recheck(ctx)

	ticker := time.NewTicker(o.cfg.RecheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Recheck(ctx)
		}
	}
}

// Close cancels an in-flight request or auto-sync and waits for the engine to
// return. No engine run starts after Close.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	run := o.active
	o.mu.Unlock()

	if run != nil {
		run.cancel()
	}
	o.runs.Wait()
}

// acquire takes the single-run guard and registers the run for Close. The returned
// release cancels the run context; the guard itself is given back by the engine
// goroutine started with startEngine, which must follow a successful acquire.
func (o *Orchestrator) acquire(parent context.Context) (context.Context, func(), error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, nil, ErrSyncInProgress
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.running.Store(false)
		return nil, nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(parent)
	run := &activeRun{cancel: cancel}
	o.active = run
	o.runs.Add(1)

	release := func() {
		cancel()
		o.mu.Lock()
		if o.active == run {
			o.active = nil
		}
		o.mu.Unlock()
	}
	return ctx, release, nil
}

// startEngine runs the engine in its own goroutine. The guard is released when
// the engine returns, before the result is handed over.
func (o *Orchestrator) startEngine(ctx context.Context) <-chan syncer.Result {
	done := make(chan syncer.Result, 1)
	go func() {
		defer o.runs.Done()
		result := o.runEngine(ctx)
		o.running.Store(false)
		done <- result
	}()
	return done
}

func (o *Orchestrator) runEngine(ctx context.Context) (result syncer.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("sync engine panicked", zap.Any("panic", r))
			result = syncer.ExceptionResult()
		}
	}()
	return o.engine.SyncPendingReadings(ctx)
}

func (o *Orchestrator) settle(ctx context.Context, result syncer.Result) {
	log := o.logger.With(
		zap.Bool("success", result.Success),
		zap.Int("synced_count", result.SyncedCount),
		zap.Int("error_count", result.ErrorCount),
		zap.Stringer("outcome", result.Outcome),
	)

	if result.Success {
		log.Info("sync completed")
		o.setStatus(StatusCompleted)
		if err := o.RefreshPendingCount(ctx); err != nil {
			log.Error("error updating pending count", zap.Error(err))
		}
	} else {
		log.Warn("sync failed")
		o.setStatus(StatusError)
	}

	o.notifyLastSync(o.now())
}

func (o *Orchestrator) setStatus(status Status) {
	o.transition(func(Status) (Status, bool) { return status, true })
}

// transition applies next to the current status under the state lock and delivers
// the change before any later one
func (o *Orchestrator) transition(next func(current Status) (Status, bool)) {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	o.mu.Lock()
	status, ok := next(o.status)
	if !ok || status == o.status {
		o.mu.Unlock()
		return
	}
	o.status = status
	o.mu.Unlock()

	if o.listener.OnStatus != nil {
		o.safeCall("status", func() { o.listener.OnStatus(status) })
	}
}

func (o *Orchestrator) notifyPendingCount(count int) {
	if o.listener.OnPendingCount != nil {
		o.safeCall("pending count", func() { o.listener.OnPendingCount(count) })
	}
}

func (o *Orchestrator) notifyLastSync(t time.Time) {
	if o.listener.OnLastSync != nil {
		o.safeCall("last sync", func() { o.listener.OnLastSync(t) })
	}
}

func (o *Orchestrator) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("listener callback failed", zap.String("callback", name), zap.Any("panic", r))
		}
	}()
	fn()
}
