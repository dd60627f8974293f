package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
)

// Scoring constants.
const (
	modelWeight        = 0.7
	ruleWeight         = 0.3
	fallbackConfidence = 75.0
	maxRiskScore       = 10.0
	probabilityEpsilon = 1e-3
)

// ErrNoSymptoms marks the zero result produced for an empty symptom list.
var ErrNoSymptoms = errors.New("no symptoms to score")

// ScoreBreakdown holds the figures every scoring outcome reports.
type ScoreBreakdown struct {
	RiskScore   float64
	Confidence  float64
	RawSeverity float64
	RuleBased   float64
	MLSeverity  float64
}

// Breakdown returns the figures.
func (b ScoreBreakdown) Breakdown() ScoreBreakdown { return b }

// Scored is the outcome of scoring: either *ModelScored or *FallbackScored.
type Scored interface {
	Breakdown() ScoreBreakdown
	Method() domain.ScoringMethod
	scored()
}

// ModelScored blends the model severity with the rule-based score.
type ModelScored struct {
	ScoreBreakdown
	Class         int
	Probabilities []float64
}

func (*ModelScored) Method() domain.ScoringMethod { return domain.ScoringMethodModel }
func (*ModelScored) scored() {}

// FallbackScored is the rule-based outcome used whenever the model path
// fails. Cause records why.
type FallbackScored struct {
	ScoreBreakdown
	Cause error
}

func (*FallbackScored) Method() domain.ScoringMethod { return domain.ScoringMethodFallback }
func (*FallbackScored) scored() {}

// RiskScorer turns a symptom list into a bounded 0-10 risk score. Model
// failures never escape Score.
type RiskScorer struct {
	features   *FeatureBuilder
	thresholds reference.Thresholds
	model      domain.TriageModel
	logger     *logrus.Logger
}

// NewRiskScorer creates a scorer. A nil model makes every result a fallback.
func NewRiskScorer(features *FeatureBuilder, thresholds reference.Thresholds, model domain.TriageModel, logger *logrus.Logger) *RiskScorer {
	return &RiskScorer{
		features:   features,
		thresholds: thresholds,
		model:      model,
		logger:     logger,
	}
}

// RuleBasedScore scales a raw weight sum onto 0-10, clamping at the max
// realistic score.
func RuleBasedScore(raw, maxRealistic float64) float64 {
	if raw > maxRealistic {
		return maxRiskScore
	}
	return round1(raw / maxRealistic * 10)
}

// Score computes the risk for normalized symptoms.
func (s *RiskScorer) Score(ctx context.Context, symptoms []string) Scored {
	if len(symptoms) == 0 {
		return &FallbackScored{Cause: ErrNoSymptoms}
	}

	vec := s.features.Build(symptoms)
	raw := s.features.RawSeverity(symptoms)
	rule := RuleBasedScore(raw, s.thresholds.MaxRealisticScore)

	severity, class, probs, err := s.invoke(ctx, vec)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"error":           err.Error(),
			"active_features": vec.Active(),
			"rule_based":      rule,
		}).Warn("Model inference failed, using rule-based score")

		return &FallbackScored{
			ScoreBreakdown: ScoreBreakdown{
				RiskScore:   rule,
				Confidence:  fallbackConfidence,
				RawSeverity: raw,
				RuleBased:   rule,
				MLSeverity:  rule,
			},
			Cause: err,
		}
	}

	ml := clamp(severity, 0, maxRiskScore)
	confidence := clamp(round1(maxOf(probs)*100), 0, 100)
	risk := clamp(round1(ml*modelWeight+rule*ruleWeight), 0, maxRiskScore)

	return &ModelScored{
		ScoreBreakdown: ScoreBreakdown{
			RiskScore:   risk,
			Confidence:  confidence,
			RawSeverity: raw,
			RuleBased:   rule,
			MLSeverity:  round1(ml),
		},
		Class:         class,
		Probabilities: probs,
	}
}

// invoke calls both model heads and validates their output. Panics inside a
// model are converted to errors.
func (s *RiskScorer) invoke(ctx context.Context, vec domain.FeatureVector) (severity float64, class int, probs []float64, err error) {
	if s.model == nil {
		return 0, 0, nil, domain.NewModelInferenceError("none", "predict", errors.New("no model configured"))
	}
	name := s.model.Info().Name

	defer func() {
		if r := recover(); r != nil {
			err = domain.NewModelInferenceError(name, "predict", fmt.Errorf("panic: %v", r))
		}
	}()

	severity, err = s.model.PredictSeverity(ctx, vec)
	if err != nil {
		return 0, 0, nil, asInferenceError(name, "severity", err)
	}
	if math.IsNaN(severity) || math.IsInf(severity, 0) {
		return 0, 0, nil, domain.NewModelInferenceError(name, "severity", fmt.Errorf("non-finite severity %v", severity))
	}

	class, probs, err = s.model.PredictUrgency(ctx, vec)
	if err != nil {
		return 0, 0, nil, asInferenceError(name, "urgency", err)
	}
	if err := validateDistribution(class, probs); err != nil {
		return 0, 0, nil, domain.NewModelInferenceError(name, "urgency", err)
	}
	return severity, class, probs, nil
}

func validateDistribution(class int, probs []float64) error {
	if len(probs) == 0 {
		return errors.New("empty probability distribution")
	}
	if class < 0 || class >= len(probs) {
		return fmt.Errorf("class index %d out of range for %d classes", class, len(probs))
	}
	var sum float64
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("invalid probability %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityEpsilon {
		return fmt.Errorf("probabilities sum to %v", sum)
	}
	return nil
}

func asInferenceError(model, op string, err error) error {
	var inferenceErr *domain.ModelInferenceError
	if errors.As(err, &inferenceErr) {
		return err
	}
	return domain.NewModelInferenceError(model, op, err)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
