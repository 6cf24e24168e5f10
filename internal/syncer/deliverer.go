package syncer

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/septivank/meter-reading-sync/internal/db"
)

// ErrDeliveryRejected is returned when the remote side refused a reading
var ErrDeliveryRejected = errors.New("delivery rejected")

// Deliverer sends one reading to the remote system. A nil error means the reading
// was accepted. Implementations must return promptly once ctx is done.
type Deliverer interface {
	Deliver(ctx context.Context, reading db.MeterReading) error
}

// SimulatedDeliverer stands in for a backend: it waits a fixed latency and then
// accepts the reading with the configured probability
type SimulatedDeliverer struct {
	delay       time.Duration
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedDeliverer creates a simulated backend
func NewSimulatedDeliverer(delay time.Duration, successRate float64) *SimulatedDeliverer {
	return &SimulatedDeliverer{
		delay:       delay,
		successRate: successRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *SimulatedDeliverer) Deliver(ctx context.Context, reading db.MeterReading) error {
	if err := Sleep(ctx, d.delay); err != nil {
		return err
	}

	d.mu.Lock()
	roll := d.rng.Float64()
	d.mu.Unlock()

	if roll >= d.successRate {
		return ErrDeliveryRejected
	}
	return nil
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
