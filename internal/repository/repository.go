package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
)

// Store keys
const (
	KeyPendingReadings = "pendingReadings"
	KeyLastSyncTime    = "lastSyncTime"
	KeyRoutesData      = "routesData"
)

var (
	// ErrReadingNotFound is returned when no queued reading has the given id
	ErrReadingNotFound = errors.New("reading not found")
	// ErrInvalidTransition is returned for a sync status change the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid sync status transition")
)

// Repository handles the reading queue and sync bookkeeping kept in the durable store.
// Every mutation reads and rewrites the whole queue.
type Repository struct {
	store kvstore.Store
	mu    sync.Mutex
}

// NewRepository creates a new repository
func NewRepository(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// Readings returns the whole queue in insertion order
func (r *Repository) Readings(ctx context.Context) ([]db.MeterReading, error) {
	return r.load(ctx)
}

// PendingCount returns the number of readings still waiting for delivery
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	readings, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return db.CountPending(readings), nil
}

// SaveReading appends the reading, or replaces the queued reading with the same id
func (r *Repository) SaveReading(ctx context.Context, reading db.MeterReading) error {
	if reading.ID == "" {
		return fmt.Errorf("failed to save reading: empty id")
	}
	if !reading.SyncStatus.Valid() {
		return fmt.Errorf("failed to save reading %s: unknown sync status %q", reading.ID, reading.SyncStatus)
	}

	return r.mutate(ctx, func(readings []db.MeterReading) ([]db.MeterReading, error) {
		if i := indexOf(readings, reading.ID); i >= 0 {
			readings[i] = reading
			return readings, nil
		}
		return append(readings, reading), nil
	})
}

// UpdateSyncStatus records the delivery outcome for a pending reading
func (r *Repository) UpdateSyncStatus(ctx context.Context, readingID string, status db.SyncStatus) error {
	return r.mutate(ctx, func(readings []db.MeterReading) ([]db.MeterReading, error) {
		i := indexOf(readings, readingID)
		if i < 0 {
			return nil, fmt.Errorf("failed to update sync status of %s: %w", readingID, ErrReadingNotFound)
		}
		current := readings[i].SyncStatus
		if !current.CanTransitionTo(status) {
			return nil, fmt.Errorf("failed to update sync status of %s from %s to %s: %w",
				readingID, current, status, ErrInvalidTransition)
		}
		readings[i].SyncStatus = status
		return readings, nil
	})
}

// RetryReading puts a reading that failed delivery back into pending
func (r *Repository) RetryReading(ctx context.Context, readingID string) error {
	return r.mutate(ctx, func(readings []db.MeterReading) ([]db.MeterReading, error) {
		i := indexOf(readings, readingID)
		if i < 0 {
			return nil, fmt.Errorf("failed to retry %s: %w", readingID, ErrReadingNotFound)
		}
		if !readings[i].SyncStatus.CanRetry() {
			return nil, fmt.Errorf("failed to retry %s in status %s: %w",
				readingID, readings[i].SyncStatus, ErrInvalidTransition)
		}
		readings[i].SyncStatus = db.SyncStatusPending
		return readings, nil
	})
}

// RemoveReading drops a reading from the queue regardless of its status
func (r *Repository) RemoveReading(ctx context.Context, readingID string) error {
	return r.mutate(ctx, func(readings []db.MeterReading) ([]db.MeterReading, error) {
		i := indexOf(readings, readingID)
		if i < 0 {
			return nil, fmt.Errorf("failed to remove %s: %w", readingID, ErrReadingNotFound)
		}
		return append(readings[:i], readings[i+1:]...), nil
	})
}

// RemoveSyncedReadings purges delivered readings and returns how many were removed
func (r *Repository) RemoveSyncedReadings(ctx context.Context) (int, error) {
	removed := 0
	err := r.mutate(ctx, func(readings []db.MeterReading) ([]db.MeterReading, error) {
		kept := make([]db.MeterReading, 0, len(readings))
		for _, reading := range readings {
			if reading.SyncStatus == db.SyncStatusSynced {
				removed++
				continue
			}
			kept = append(kept, reading)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// SaveLastSyncTime stores t as an ISO-8601 timestamp
func (r *Repository) SaveLastSyncTime(ctx context.Context, t time.Time) error {
	if err := r.store.Set(ctx, KeyLastSyncTime, timeparser.FormatTimestamp(t)); err != nil {
		return fmt.Errorf("failed to save last sync time: %w", err)
	}
	return nil
}

// LastSyncTime returns the last recorded sync time; ok is false if none was recorded
func (r *Repository) LastSyncTime(ctx context.Context) (t time.Time, ok bool, err error) {
	value, found, err := r.store.Get(ctx, KeyLastSyncTime)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last sync time: %w", err)
	}
	if !found || value == "" {
		return time.Time{}, false, nil
	}
	t, err = timeparser.ParseReadingTimestamp(value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last sync time: %w", err)
	}
	return t, true, nil
}

// SaveRoutes caches route documents for offline access
func (r *Repository) SaveRoutes(ctx context.Context, routes []json.RawMessage) error {
	if routes == nil {
		routes = []json.RawMessage{}
	}
	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("failed to marshal routes: %w", err)
	}
	if err := r.store.Set(ctx, KeyRoutesData, string(data)); err != nil {
		return fmt.Errorf("failed to save routes data: %w", err)
	}
	return nil
}

// Routes returns the cached route documents
func (r *Repository) Routes(ctx context.Context) ([]json.RawMessage, error) {
	value, found, err := r.store.Get(ctx, KeyRoutesData)
	if err != nil {
		return nil, fmt.Errorf("failed to get routes data: %w", err)
	}
	if !found || value == "" {
		return []json.RawMessage{}, nil
	}
	var routes []json.RawMessage
	if err := json.Unmarshal([]byte(value), &routes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routes data: %w", err)
	}
	return routes, nil
}

func (r *Repository) mutate(ctx context.Context, fn func([]db.MeterReading) ([]db.MeterReading, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	readings, err := r.load(ctx)
	if err != nil {
		return err
	}
	readings, err = fn(readings)
	if err != nil {
		return err
	}
	return r.save(ctx, readings)
}

func (r *Repository) load(ctx context.Context) ([]db.MeterReading, error) {
	value, found, err := r.store.Get(ctx, KeyPendingReadings)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending readings: %w", err)
	}
	if !found || value == "" {
		return []db.MeterReading{}, nil
	}

	var readings []db.MeterReading
	if err := json.Unmarshal([]byte(value), &readings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending readings: %w", err)
	}
	return readings, nil
}

func (r *Repository) save(ctx context.Context, readings []db.MeterReading) error {
	data, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("failed to marshal pending readings: %w", err)
	}
	if err := r.store.Set(ctx, KeyPendingReadings, string(data)); err != nil {
		return fmt.Errorf("failed to save pending readings: %w", err)
	}
	return nil
}

func indexOf(readings []db.MeterReading, id string) int {
	for i := range readings {
		if readings[i].ID == id {
			return i
		}
	}
	return -1
}
