package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
)

// SampleStore persists training samples.
type SampleStore interface {
	SaveBatch(ctx context.Context, batchID string, samples []*domain.TrainingSample) error
	Count(ctx context.Context) (int64, error)
	CountBatches(ctx context.Context) (int64, error)
}

// TrainingService accepts completed-consultation samples for retraining the
// duration model.
type TrainingService struct {
	store     SampleStore
	threshold int
	command   string
	logger    *logrus.Logger
}

// NewTrainingService creates the intake service. A batch of at least
// threshold samples produces a retraining suggestion with command.
func NewTrainingService(store SampleStore, threshold int, command string, logger *logrus.Logger) *TrainingService {
	return &TrainingService{
		store:     store,
		threshold: threshold,
		command:   command,
		logger:    logger,
	}
}

// Ingest validates and stores one upload as a new batch.
func (s *TrainingService) Ingest(ctx context.Context, samples []*domain.TrainingSample, source string) (*domain.TrainingBatchResult, error) {
	if len(samples) == 0 {
		return nil, domain.NewValidationError("data", "No training data provided", nil)
	}

	now := time.Now().UTC()
	batchID := uuid.New().String()
	for i, sample := range samples {
		if err := validateSample(i, sample); err != nil {
			return nil, err
		}
		sample.BatchID = batchID
		if sample.Source == "" {
			sample.Source = source
		}
		if sample.CreatedAt.IsZero() {
			sample.CreatedAt = now
		}
	}

	if err := s.store.SaveBatch(ctx, batchID, samples); err != nil {
		return nil, fmt.Errorf("failed to save training batch: %w", err)
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count training samples: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id":      batchID,
		"samples":       len(samples),
		"total_samples": total,
	}).Info("Training batch stored")

	result := &domain.TrainingBatchResult{
		Message:      fmt.Sprintf("Received %d training samples", len(samples)),
		SavedTo:      batchID,
		Samples:      len(samples),
		TotalSamples: total,
	}
	if len(samples) >= s.threshold {
		result.TrainingSuggestion = fmt.Sprintf("Retrain the duration model (now has %d total samples)", total)
		result.Command = s.command
	} else {
		result.NextStep = fmt.Sprintf("Retrain when you have at least %d new samples (currently %d)", s.threshold, len(samples))
	}
	return result, nil
}

// SuggestRetraining reports whether any training batches are waiting.
func (s *TrainingService) SuggestRetraining(ctx context.Context) (bool, error) {
	batches, err := s.store.CountBatches(ctx)
	if err != nil {
		return false, err
	}
	return batches > 0, nil
}

// TotalSamples returns the number of stored samples.
func (s *TrainingService) TotalSamples(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func validateSample(i int, sample *domain.TrainingSample) error {
	field := func(name string) string { return fmt.Sprintf("data[%d].%s", i, name) }

	if sample == nil {
		return domain.NewValidationError(fmt.Sprintf("data[%d]", i), "sample must be an object", nil)
	}
	if strings.TrimSpace(sample.Department) == "" {
		return domain.NewValidationError(field("department"), "department is required", nil)
	}
	if strings.TrimSpace(sample.Priority) == "" {
		return domain.NewValidationError(field("priority"), "priority is required", nil)
	}
	if strings.TrimSpace(sample.AppointmentType) == "" {
		return domain.NewValidationError(field("appointmentType"), "appointmentType is required", nil)
	}
	if sample.ActualDuration <= 0 {
		return domain.NewValidationError(field("actualDuration"), "actualDuration must be positive", sample.ActualDuration)
	}
	if sample.TimeOfDay < 0 || sample.TimeOfDay > 23 {
		return domain.NewValidationError(field("timeOfDay"), "timeOfDay must be between 0 and 23", sample.TimeOfDay)
	}
	if sample.DayOfWeek < 0 || sample.DayOfWeek > 6 {
		return domain.NewValidationError(field("dayOfWeek"), "dayOfWeek must be between 0 and 6", sample.DayOfWeek)
	}
	return nil
}
