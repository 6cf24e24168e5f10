package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is how long a changed reachability value must hold before it is reported
const DefaultDebounce = 300 * time.Millisecond

// SyncFunc runs one synchronization attempt. It must return once ctx is cancelled.
// Unsubscribe waits for a running SyncFunc, so a SyncFunc must not call the
// unsubscribe function of its own subscription synchronously; start it in a new
// goroutine instead.
type SyncFunc func(ctx context.Context)

// Observer reports debounced connectivity changes and starts a sync on every
// transition into connected
type Observer struct {
	platform Platform
	logger   *zap.Logger
	debounce time.Duration
	syncFn   SyncFunc
}

// NewObserver creates an observer. A nil syncFn disables auto-sync on reconnect.
func NewObserver(platform Platform, logger *zap.Logger, debounce time.Duration, syncFn SyncFunc) *Observer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Observer{
		platform: platform,
		logger:   logger,
		debounce: debounce,
		syncFn:   syncFn,
	}
}

// CheckOnlineStatus queries the platform once. Any failure counts as offline.
func (o *Observer) CheckOnlineStatus(ctx context.Context) bool {
	state, err := o.platform.Fetch(ctx)
	if err != nil {
		o.logger.Warn("failed to check online status", zap.Error(err))
		return false
	}
	return state.Online()
}

// Subscribe registers onChange for debounced connectivity changes. The returned
// unsubscribe function is safe to call any number of times. It blocks until an
// in-flight auto-sync has returned and must not be called from the SyncFunc.
//
// If the platform refuses the registration, onChange is called once with false
// and the subscription stays inactive.
func (o *Observer) Subscribe(onChange func(bool)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		observer: o,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
		active:   true,
	}

	remove, err := o.platform.AddListener(s.handle)
	if err != nil {
		o.logger.Error("failed to register connectivity listener", zap.Error(err))
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		cancel()
		s.notify(false)
		return s.unsubscribe
	}

	s.mu.Lock()
	s.remove = remove
	s.mu.Unlock()

	return s.unsubscribe
}

type subscription struct {
	observer *Observer
	onChange func(bool)
	ctx      context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	active     bool
	delivered  *bool
	pending    bool
	timer      *time.Timer
	generation uint64
	syncing    bool
	remove     func()

	once     sync.Once
	inflight sync.WaitGroup
}

func (s *subscription) handle(state State) {
	connected := state.Usable()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	if s.delivered != nil && *s.delivered == connected {
		// the flap settled back on the value subscribers already have
		s.stopTimerLocked()
		return
	}
	if s.timer != nil && s.pending == connected {
		return
	}

	s.stopTimerLocked()
	s.pending = connected
	gen := s.generation
	s.timer = time.AfterFunc(s.observer.debounce, func() { s.fire(gen, connected) })
}

func (s *subscription) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *subscription) fire(gen uint64, connected bool) {
	s.mu.Lock()
	if !s.active || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.delivered = &connected
	startSync := connected && !s.syncing && s.observer.syncFn != nil
	if startSync {
		s.syncing = true
	}
	s.mu.Unlock()

	s.notify(connected)

	if !startSync {
		return
	}

	s.mu.Lock()
	if !s.active {
		s.syncing = false
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go s.autoSync()
}

func (s *subscription) autoSync() {
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			s.observer.logger.Error("auto-sync failed", zap.Any("panic", r))
		}
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	s.observer.logger.Info("connection restored, starting auto-sync")
	s.observer.syncFn(s.ctx)
}

func (s *subscription) notify(connected bool) {
	if s.onChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.observer.logger.Error("network change callback failed", zap.Any("panic", r))
		}
	}()
	s.onChange(connected)
}

// unsubscribe stops the debounce timer, cancels an in-flight auto-sync, detaches
// from the platform and waits for the auto-sync goroutine to return
func (s *subscription) unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.active = false
		s.stopTimerLocked()
		remove := s.remove
		s.remove = nil
		s.mu.Unlock()

		s.cancel()

		if remove != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.observer.logger.Error("failed to detach connectivity listener", zap.Any("panic", r))
					}
				}()
				remove()
			}()
		}

		s.inflight.Wait()
	})
}
