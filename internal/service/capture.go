package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-reading-sync/internal/anomaly"
	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/logging"
	"github.com/septivank/meter-reading-sync/internal/repository"
	"github.com/septivank/meter-reading-sync/internal/validator"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
	"go.uber.org/zap"
)

// ErrInvalidReading is returned when a reading fails validation; nothing is stored
var ErrInvalidReading = errors.New("invalid reading")

// ReadingRequest is a reading as entered by the operator
type ReadingRequest struct {
	MeterID       string
	AddressID     string
	RouteID       string
	Value         string
	PreviousValue string
	ImageURI      string
}

// CaptureResult is a stored reading with the warnings the operator should see
type CaptureResult struct {
	Reading      db.MeterReading
	Warnings     []string
	PendingCount int
}

// CaptureService validates operator readings and queues them for sync
type CaptureService struct {
	repo      *repository.Repository
	validator *validator.Validator
	detector  *anomaly.Detector
	logger    *zap.Logger
	now       func() time.Time
}

// NewCaptureService creates a new capture service
func NewCaptureService(
	repo *repository.Repository,
	validator *validator.Validator,
	detector *anomaly.Detector,
	logger *zap.Logger,
) *CaptureService {
	return &CaptureService{
		repo:      repo,
		validator: validator,
		detector:  detector,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordReading validates the request and appends it to the queue as pending.
// Anomalies are returned as warnings and do not block the save.
func (s *CaptureService) RecordReading(ctx context.Context, req ReadingRequest) (*CaptureResult, error) {
	value, previous, validationResult := s.validator.ValidateReading(validator.ReadingInput{
		MeterID:       req.MeterID,
		AddressID:     req.AddressID,
		RouteID:       req.RouteID,
		Value:         req.Value,
		PreviousValue: req.PreviousValue,
	})
	if !validationResult.IsValid {
		s.logger.Debug("reading rejected",
			zap.String("meter_id", req.MeterID),
			zap.String("reason", validationResult.Reason))
		return nil, fmt.Errorf("%w: %s", ErrInvalidReading, validationResult.Reason)
	}

	var warnings []string
	if previous != nil {
		if isAnomaly, reason := s.detector.DetectAnomaly(value, *previous); isAnomaly {
			warnings = append(warnings, reason)
		}
	}

	reading := db.MeterReading{
		ID:         uuid.New().String(),
		MeterID:    req.MeterID,
		AddressID:  req.AddressID,
		RouteID:    req.RouteID,
		Value:      strings.TrimSpace(req.Value),
		Timestamp:  timeparser.FormatTimestamp(s.now()),
		ImageURI:   req.ImageURI,
		SyncStatus: db.SyncStatusPending,
	}

	log := logging.WithReadingID(s.logger, reading.ID)

	if err := s.repo.SaveReading(ctx, reading); err != nil {
		log.Error("failed to save reading", zap.Error(err))
		return nil, fmt.Errorf("failed to save reading: %w", err)
	}

	if len(warnings) > 0 {
		log.Warn("reading saved with anomalies",
			zap.String("meter_id", reading.MeterID),
			zap.Strings("warnings", warnings))
	} else {
		log.Info("reading saved", zap.String("meter_id", reading.MeterID))
	}

	pending, err := s.repo.PendingCount(ctx)
	if err != nil {
		log.Warn("failed to refresh pending count", zap.Error(err))
	}

	return &CaptureResult{
		Reading:      reading,
		Warnings:     warnings,
		PendingCount: pending,
	}, nil
}
