package connectivity

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProbePlatform derives connectivity from the host's network interfaces and a TCP
// dial to a well-known address. Listeners are fed by a poll loop that runs while at
// least one listener is attached; the first poll is reported immediately.
type ProbePlatform struct {
	address  string
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger

	dial       func(ctx context.Context, network, address string) (net.Conn, error)
	interfaces func() (bool, error)

	mu        sync.Mutex
	listeners map[int]func(State)
	nextID    int
	stop      context.CancelFunc
	done      chan struct{}
}

// NewProbePlatform creates a platform that dials address to test reachability
func NewProbePlatform(address string, timeout, interval time.Duration, logger *zap.Logger) *ProbePlatform {
	dialer := &net.Dialer{}
	return &ProbePlatform{
		address:    address,
		timeout:    timeout,
		interval:   interval,
		logger:     logger,
		dial:       dialer.DialContext,
		interfaces: hasActiveInterface,
		listeners:  make(map[int]func(State)),
	}
}

// Fetch queries interfaces and probes the address once
func (p *ProbePlatform) Fetch(ctx context.Context) (State, error) {
	up, err := p.interfaces()
	if err != nil {
		return State{}, fmt.Errorf("failed to list network interfaces: %w", err)
	}
	if !up {
		return State{IsConnected: false, InternetReachable: Unreachable}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(dialCtx, "tcp", p.address)
	if err != nil {
		if ctx.Err() != nil {
			return State{}, ctx.Err()
		}
		p.logger.Debug("reachability probe failed", zap.String("address", p.address), zap.Error(err))
		return State{IsConnected: true, InternetReachable: Unreachable}, nil
	}
	conn.Close()

	return State{IsConnected: true, InternetReachable: Reachable}, nil
}

// AddListener attaches fn and starts the poll loop if it is the first listener.
// The returned remove function waits for the poll loop and must not be called from fn.
func (p *ProbePlatform) AddListener(fn func(State)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("nil connectivity listener")
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	if p.stop == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.stop = cancel
		p.done = make(chan struct{})
		go p.poll(ctx, p.done)
	}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { p.removeListener(id) })
	}, nil
}

func (p *ProbePlatform) removeListener(id int) {
	p.mu.Lock()
	delete(p.listeners, id)
	var stop context.CancelFunc
	var done chan struct{}
	if len(p.listeners) == 0 && p.stop != nil {
		stop, done = p.stop, p.done
		p.stop, p.done = nil, nil
	}
	p.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (p *ProbePlatform) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last *State
	for {
		state, err := p.Fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("connectivity poll failed", zap.Error(err))
			state = State{IsConnected: false, InternetReachable: ReachabilityUnknown}
		}
		if last == nil || *last != state {
			last = &state
			p.emit(state)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *ProbePlatform) emit(state State) {
	p.mu.Lock()
	fns := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func hasActiveInterface() (bool, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true, nil
		}
	}
	return false, nil
}
