package connectivity

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func newTestProbe(t *testing.T, up bool, dialErr error) *ProbePlatform {
	t.Helper()
	p := NewProbePlatform("probe.invalid:443", 50*time.Millisecond, 10*time.Millisecond, zaptest.NewLogger(t))
	p.interfaces = func() (bool, error) { return up, nil }
	p.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}
	return p
}

func TestProbePlatform_Fetch(t *testing.T) {
	ctx := context.Background()

	state, err := newTestProbe(t, true, nil).Fetch(ctx)
	if err != nil || !state.Online() {
		t.Errorf("Expected online state, got %+v err=%v", state, err)
	}

	state, err = newTestProbe(t, true, errors.New("connection refused")).Fetch(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !state.IsConnected || state.InternetReachable != Unreachable {
		t.Errorf("Expected connected but unreachable, got %+v", state)
	}

	state, err = newTestProbe(t, false, nil).Fetch(ctx)
	if err != nil || state.IsConnected {
		t.Errorf("Expected disconnected state, got %+v err=%v", state, err)
	}
}

func TestProbePlatform_Fetch_InterfaceError(t *testing.T) {
	p := newTestProbe(t, true, nil)
	p.interfaces = func() (bool, error) { return false, errors.New("permission denied") }

	if _, err := p.Fetch(context.Background()); err == nil {
		t.Error("Expected interface listing error to be returned")
	}
}

func TestProbePlatform_ListenerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newTestProbe(t, true, nil)

	var mu sync.Mutex
	var states []State
	remove, err := p.AddListener(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})
	if err != nil {
		t.Fatalf("AddListener failed: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1
	})

	// unchanged polls are not re-emitted
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	n := len(states)
	mu.Unlock()
	if n != 1 {
		t.Errorf("Expected a single emission for a stable state, got %d", n)
	}

	remove()
	remove()
}
