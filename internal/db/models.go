package db

import "fmt"

// SyncStatus is the delivery state of a queued reading
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusError   SyncStatus = "error"
)

// Valid reports whether s is one of the known statuses
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the sync engine may move a reading from s to next.
// Readings only leave pending; error -> pending is an operator retry and goes
// through CanRetry instead.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	if s != SyncStatusPending {
		return false
	}
	return next == SyncStatusSynced || next == SyncStatusError
}

// CanRetry reports whether an operator may put the reading back into pending
func (s SyncStatus) CanRetry() bool {
	return s == SyncStatusError
}

// MeterReading represents a reading recorded in the field and queued for delivery
type MeterReading struct {
	ID         string     `json:"id"`
	MeterID    string     `json:"meterId"`
	AddressID  string     `json:"addressId"`
	RouteID    string     `json:"routeId"`
	Value      string     `json:"value"`
	Timestamp  string     `json:"timestamp"`
	ImageURI   string     `json:"imageUri,omitempty"`
	SyncStatus SyncStatus `json:"syncStatus"`
}

func (r MeterReading) String() string {
	return fmt.Sprintf("reading %s (meter %s, value %s, %s)", r.ID, r.MeterID, r.Value, r.SyncStatus)
}

// CountPending returns how many readings are still waiting for delivery
func CountPending(readings []MeterReading) int {
	n := 0
	for _, r := range readings {
		if r.SyncStatus == SyncStatusPending {
			n++
		}
	}
	return n
}
