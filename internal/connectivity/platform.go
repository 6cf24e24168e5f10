// Package connectivity turns raw network reachability reports into a debounced,
// edge-triggered online/offline signal.
package connectivity

import "context"

// Reachability is the platform's opinion on whether the internet can be reached.
// It is Unknown until a probe has completed.
type Reachability int

const (
	ReachabilityUnknown Reachability = iota
	Reachable
	Unreachable
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// State is one reachability report
type State struct {
	IsConnected       bool
	InternetReachable Reachability
}

// Online is the strict check used for one-shot queries: the device must be
// connected and the internet must be known to be reachable.
func (s State) Online() bool {
	return s.IsConnected && s.InternetReachable == Reachable
}

// Usable is the lenient check applied to subscription events: only an
// explicit unreachable report counts against a connected device.
func (s State) Usable() bool {
	return s.IsConnected && s.InternetReachable != Unreachable
}

// Platform is the device connectivity layer
type Platform interface {
	// Fetch queries the current state once
	Fetch(ctx context.Context) (State, error)
	// AddListener registers fn for state changes and returns a function that detaches it
	AddListener(fn func(State)) (remove func(), err error)
}
