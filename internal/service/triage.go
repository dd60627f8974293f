// Package service implements the triage pipeline (feature encoding, risk
// scoring, urgency classification, recommendation assembly and age
// adjustment) together with the duration and training-intake services that
// sit beside it.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
	"github.com/triage-risk-service/internal/symptom"
)

// Request limits.
const (
	MaxSymptoms = 100
	MinAge      = 1
	MaxAge      = 150
)

// ResultCache stores complete assessments keyed by request content.
type ResultCache interface {
	Get(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, bool, error)
	Set(ctx context.Context, req *domain.PredictionRequest, result *domain.PredictionResult) error
}

// TriageService runs the full assessment pipeline. It holds only read-only
// state and is safe for concurrent use.
type TriageService struct {
	tables          *reference.Tables
	model           domain.TriageModel
	features        *FeatureBuilder
	scorer          *RiskScorer
	classifier      *UrgencyClassifier
	recommendations *RecommendationAssembler
	cache           ResultCache
	logger          *logrus.Logger
}

// TriageOption configures a TriageService.
type TriageOption func(*TriageService)

// WithResultCache enables result caching.
func WithResultCache(cache ResultCache) TriageOption {
	return func(s *TriageService) {
		s.cache = cache
	}
}

// NewTriageService wires the pipeline around the given tables and model.
func NewTriageService(tables *reference.Tables, model domain.TriageModel, logger *logrus.Logger, opts ...TriageOption) *TriageService {
	features := NewFeatureBuilder(tables)
	s := &TriageService{
		tables:          tables,
		model:           model,
		features:        features,
		scorer:          NewRiskScorer(features, tables.Thresholds(), model, logger),
		classifier:      NewUrgencyClassifier(tables.Thresholds()),
		recommendations: NewRecommendationAssembler(tables),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess validates the request and produces a full prediction result. Only
// validation errors and unexpected internal faults are returned; model
// failures are absorbed by the rule-based fallback.
func (s *TriageService) Assess(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, error) {
	if err := ValidatePredictionRequest(req); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, req)
		if err != nil {
			s.logger.WithError(err).Warn("Prediction cache read failed")
		} else if ok {
			s.logger.Debug("Prediction cache hit")
			return cached, nil
		}
	}

	start := time.Now()
	symptoms := symptom.NormalizeAll(req.Symptoms)

	scored := s.scorer.Score(ctx, symptoms)
	b := scored.Breakdown()

	urgency := s.classifier.Classify(b.RawSeverity, b.RiskScore, symptoms)
	if !urgency.IsValid() {
		return nil, fmt.Errorf("classifier produced invalid urgency %q", urgency)
	}
	recs := s.recommendations.Assemble(symptoms, urgency, b.RiskScore)

	risk := b.RiskScore
	ageAdjusted := false
	if req.Age != nil {
		risk, urgency, ageAdjusted = AdjustForAge(*req.Age, risk, urgency)
	}

	result := &domain.PredictionResult{
		RiskScore:        risk,
		Confidence:       b.Confidence,
		Urgency:          urgency,
		Recommendations:  recs,
		SymptomsAnalyzed: len(req.Symptoms),
		Analysis: domain.Analysis{
			RawSeverityScore:    b.RawSeverity,
			MLBasedPrediction:   b.MLSeverity,
			RuleBasedPrediction: b.RuleBased,
			ScoringMethod:       scored.Method(),
			AgeAdjusted:         ageAdjusted,
		},
		ThresholdInfo:        s.tables.Thresholds().Info(),
		Age:                  req.Age,
		Gender:               req.Gender,
		Duration:             req.Duration,
		UserReportedSeverity: req.Severity,
	}

	s.logger.WithFields(logrus.Fields{
		"symptoms":       len(symptoms),
		"risk_score":     result.RiskScore,
		"urgency":        result.Urgency,
		"scoring_method": scored.Method(),
		"age_adjusted":   ageAdjusted,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("Risk assessment completed")

	if s.cache != nil {
		if err := s.cache.Set(ctx, req, result); err != nil {
			s.logger.WithError(err).Warn("Prediction cache write failed")
		}
	}
	return result, nil
}

// ValidatePredictionRequest rejects requests before any scoring happens.
func ValidatePredictionRequest(req *domain.PredictionRequest) error {
	if req == nil || len(req.Symptoms) == 0 {
		return domain.NewValidationError("symptoms", "at least one symptom is required", nil)
	}
	if len(req.Symptoms) > MaxSymptoms {
		return domain.NewValidationError("symptoms", fmt.Sprintf("at most %d symptoms are allowed", MaxSymptoms), len(req.Symptoms))
	}
	if len(symptom.NormalizeAll(req.Symptoms)) == 0 {
		return domain.NewValidationError("symptoms", "symptoms must not be blank", req.Symptoms)
	}
	if req.Age != nil && (*req.Age < MinAge || *req.Age > MaxAge) {
		return domain.NewValidationError("age", fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge), *req.Age)
	}
	return nil
}

// Tables returns the reference tables in use.
func (s *TriageService) Tables() *reference.Tables { return s.tables }

// ModelInfo describes the risk model, or reports that none is configured.
func (s *TriageService) ModelInfo() domain.ModelInfo {
	if s.model == nil {
		return domain.ModelInfo{Name: "none", Type: "rule_based", Version: s.tables.Version()}
	}
	return s.model.Info()
}
