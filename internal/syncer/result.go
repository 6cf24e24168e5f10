package syncer

import "fmt"

// Reserved ErrorCount values for failures of the sync run itself. Non-negative
// values count readings that failed delivery.
const (
	ErrorCountException = -1
	ErrorCountAborted   = -2
	ErrorCountTimeout   = -3
)

// Outcome classifies how a sync run ended, independent of the per-reading counts
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeOffline
	OutcomeException
	OutcomeAborted
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeOffline:
		return "offline"
	case OutcomeException:
		return "exception"
	case OutcomeAborted:
		return "aborted"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of one sync run
type Result struct {
	Success     bool
	SyncedCount int
	ErrorCount  int
	Outcome     Outcome
}

// OfflineResult is returned without touching the queue when there is no connection
func OfflineResult() Result {
	return Result{Outcome: OutcomeOffline}
}

// ExceptionResult reports that the run itself failed
func ExceptionResult() Result {
	return Result{ErrorCount: ErrorCountException, Outcome: OutcomeException}
}

// AbortedResult reports that the run was cancelled
func AbortedResult() Result {
	return Result{ErrorCount: ErrorCountAborted, Outcome: OutcomeAborted}
}

// TimedOutResult reports that the run did not finish in time
func TimedOutResult() Result {
	return Result{ErrorCount: ErrorCountTimeout, Outcome: OutcomeTimedOut}
}

// CompletedResult builds the result of a run that went through the whole queue
func CompletedResult(synced, failed int) Result {
	return Result{
		Success:     failed == 0,
		SyncedCount: synced,
		ErrorCount:  failed,
		Outcome:     OutcomeCompleted,
	}
}

// OperationalFailure reports whether the sync mechanism failed, as opposed to
// some readings being refused
func (r Result) OperationalFailure() bool {
	return r.ErrorCount < 0
}
