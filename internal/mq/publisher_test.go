package mq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/syncer"
)

func TestNewIngestMessage(t *testing.T) {
	reading := db.MeterReading{
		ID:         "3b7f3c1e-1111-4a6e-9d1c-5a0f6c9b2a10",
		MeterID:    "M-1001",
		AddressID:  "A-17",
		RouteID:    "R-1234",
		Value:      "12450",
		Timestamp:  "2025-12-29T10:30:45.000Z",
		ImageURI:   "file:///captures/1.jpg",
		SyncStatus: db.SyncStatusPending,
	}
	now := time.Date(2025, 12, 29, 11, 0, 0, 0, time.UTC)

	msg := NewIngestMessage(reading, "tablet-07", now)

	if msg.RequestID != reading.ID {
		t.Errorf("Expected request id %s, got %s", reading.ID, msg.RequestID)
	}
	if msg.ClientFingerprint != "tablet-07" {
		t.Errorf("Unexpected fingerprint: %s", msg.ClientFingerprint)
	}
	if len(msg.Payload.PM) != 1 {
		t.Fatalf("Expected one data point, got %d", len(msg.Payload.PM))
	}
	pm := msg.Payload.PM[0]
	if pm.Date != "29/12/2025 10:30:45" || pm.Data != "12450" || pm.Name != "meter_reading" {
		t.Errorf("Unexpected data point: %+v", pm)
	}
	if msg.Field == nil || msg.Field.MeterID != "M-1001" || msg.Field.ImageURI != reading.ImageURI {
		t.Errorf("Unexpected field reading: %+v", msg.Field)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := decoded["field_reading"]; !ok {
		t.Error("Expected field_reading in envelope")
	}
}

func TestNewIngestMessage_UnparseableTimestamp(t *testing.T) {
	reading := db.MeterReading{ID: "a", Value: "1", Timestamp: "yesterday"}

	msg := NewIngestMessage(reading, "dev", time.Now())

	if msg.Payload.PM[0].Date != "yesterday" {
		t.Errorf("Expected raw timestamp passed through, got %s", msg.Payload.PM[0].Date)
	}
}

func TestErrNacked_IsDeliveryRejection(t *testing.T) {
	if !errors.Is(ErrNacked, syncer.ErrDeliveryRejected) {
		t.Error("Expected a broker nack to count as a rejected delivery")
	}
	if !errors.Is(ErrNacked, ErrNacked) {
		t.Error("Expected ErrNacked to match itself")
	}
}
