package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/model"
)

// Defaults for optional duration request fields.
const (
	DefaultSymptomCount = 1
	DefaultTimeOfDay    = 12
)

// DurationService predicts consultation length. A trained model is used when
// present; any failure falls back to the heuristic.
type DurationService struct {
	trained   domain.DurationModel
	heuristic model.HeuristicDuration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewDurationService creates the service. trained may be nil.
func NewDurationService(trained domain.DurationModel, logger *logrus.Logger) *DurationService {
	return &DurationService{
		trained: trained,
		logger:  logger,
		now:     time.Now,
	}
}

// Predict validates the request, applies defaults and runs the active model.
func (s *DurationService) Predict(ctx context.Context, req *domain.DurationRequest) (*domain.DurationResult, error) {
	features, err := s.Features(req)
	if err != nil {
		return nil, err
	}

	if s.trained == nil {
		return s.heuristic.Predict(ctx, features)
	}

	result, err := s.trained.Predict(ctx, features)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"department": features.Department,
			"priority":   features.Priority,
		}).Warn("Duration model failed, using heuristic")

		fallback, _ := s.heuristic.Predict(ctx, features)
		fallback.ModelType = model.DurationTypeFallback
		return fallback, nil
	}
	return result, nil
}

// Features validates required fields and fills defaults. The day of week
// defaults to today with Monday as 0.
func (s *DurationService) Features(req *domain.DurationRequest) (domain.DurationFeatures, error) {
	if req == nil {
		return domain.DurationFeatures{}, domain.NewValidationError("department", "Missing required field: department", nil)
	}
	required := []struct {
		name  string
		value string
	}{
		{"department", req.Department},
		{"priority", req.Priority},
		{"appointmentType", req.AppointmentType},
	}
	for _, f := range required {
		if f.value == "" {
			return domain.DurationFeatures{}, domain.NewValidationError(f.name, "Missing required field: "+f.name, nil)
		}
	}

	features := domain.DurationFeatures{
		Department:      req.Department,
		Priority:        req.Priority,
		AppointmentType: req.AppointmentType,
		SymptomCount:    DefaultSymptomCount,
		TimeOfDay:       DefaultTimeOfDay,
		DayOfWeek:       (int(s.now().Weekday()) + 6) % 7,
	}
	if req.SymptomCount != nil {
		if *req.SymptomCount < 0 {
			return domain.DurationFeatures{}, domain.NewValidationError("symptomCount", "symptomCount must not be negative", *req.SymptomCount)
		}
		features.SymptomCount = *req.SymptomCount
	}
	if req.TimeOfDay != nil {
		if *req.TimeOfDay < 0 || *req.TimeOfDay > 23 {
			return domain.DurationFeatures{}, domain.NewValidationError("timeOfDay", "timeOfDay must be between 0 and 23", *req.TimeOfDay)
		}
		features.TimeOfDay = *req.TimeOfDay
	}
	if req.DayOfWeek != nil {
		if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
			return domain.DurationFeatures{}, domain.NewValidationError("dayOfWeek", "dayOfWeek must be between 0 and 6", *req.DayOfWeek)
		}
		features.DayOfWeek = *req.DayOfWeek
	}
	return features, nil
}

// ActiveModel describes the model answering requests.
func (s *DurationService) ActiveModel() domain.ModelInfo {
	if s.trained != nil {
		return s.trained.Info()
	}
	return s.heuristic.Info()
}

// FallbackResult is reported alongside request errors.
func (s *DurationService) FallbackResult() *domain.DurationResult {
	info := s.ActiveModel()
	return &domain.DurationResult{
		PredictedDuration: 20,
		Confidence:        0.3,
		ModelVersion:      info.Version,
		ModelType:         info.Type,
	}
}
