package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-reading-sync/internal/anomaly"
	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/kvstore"
	"github.com/septivank/meter-reading-sync/internal/repository"
	"github.com/septivank/meter-reading-sync/internal/validator"
	"go.uber.org/zap/zaptest"
)

func newTestCapture(t *testing.T) (*CaptureService, *repository.Repository) {
	repo := repository.NewRepository(kvstore.NewMemoryStore())
	svc := NewCaptureService(repo, validator.NewValidator(true), anomaly.NewDetector(300, 5), zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC) }
	return svc, repo
}

func TestRecordReading_Valid(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestCapture(t)

	res, err := svc.RecordReading(ctx, ReadingRequest{
		MeterID:       "m-1",
		AddressID:     "a-1",
		RouteID:       "r-1",
		Value:         " 1250 ",
		PreviousValue: "1200",
		ImageURI:      "file:///photos/1.jpg",
	})
	if err != nil {
		t.Fatalf("RecordReading failed: %v", err)
	}

	if _, err := uuid.Parse(res.Reading.ID); err != nil {
		t.Errorf("Expected uuid reading id, got %q", res.Reading.ID)
	}
	if res.Reading.Value != "1250" {
		t.Errorf("Expected trimmed value 1250, got %q", res.Reading.Value)
	}
	if res.Reading.Timestamp != "2026-03-04T09:30:00.000Z" {
		t.Errorf("Unexpected timestamp %q", res.Reading.Timestamp)
	}
	if res.Reading.SyncStatus != db.SyncStatusPending {
		t.Errorf("Expected pending, got %s", res.Reading.SyncStatus)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}
	if res.PendingCount != 1 {
		t.Errorf("Expected pending count 1, got %d", res.PendingCount)
	}

	readings, _ := repo.Readings(ctx)
	if len(readings) != 1 || readings[0].ID != res.Reading.ID || readings[0].ImageURI != "file:///photos/1.jpg" {
		t.Errorf("Unexpected queue %v", readings)
	}
}

func TestRecordReading_AnomalyWarnsButSaves(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestCapture(t)

	res, err := svc.RecordReading(ctx, ReadingRequest{
		MeterID:       "m-1",
		AddressID:     "a-1",
		RouteID:       "r-1",
		Value:         "1600",
		PreviousValue: "1200",
	})
	if err != nil {
		t.Fatalf("RecordReading failed: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Expected one warning, got %v", res.Warnings)
	}

	count, _ := repo.PendingCount(ctx)
	if count != 1 {
		t.Errorf("Expected anomalous reading to be queued, got %d pending", count)
	}
}

func TestRecordReading_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestCapture(t)

	tests := []struct {
		name string
		req  ReadingRequest
	}{
		{"empty meter", ReadingRequest{AddressID: "a", RouteID: "r", Value: "1"}},
		{"not a number", ReadingRequest{MeterID: "m", AddressID: "a", RouteID: "r", Value: "12a"}},
		{"lower than previous", ReadingRequest{MeterID: "m", AddressID: "a", RouteID: "r", Value: "90", PreviousValue: "100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordReading(ctx, tt.req)
			if !errors.Is(err, ErrInvalidReading) {
				t.Errorf("Expected ErrInvalidReading, got %v", err)
			}
		})
	}

	readings, _ := repo.Readings(ctx)
	if len(readings) != 0 {
		t.Errorf("Expected nothing stored, got %v", readings)
	}
}
