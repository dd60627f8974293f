package model

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/triage-risk-service/internal/domain"
)

// BreakerModel stops calling a failing model until it recovers. While the
// breaker is open every call fails fast and the scorer falls back to the rule
// score.
type BreakerModel struct {
	next    domain.TriageModel
	breaker *gobreaker.CircuitBreaker
}

type urgencyOutcome struct {
	class int
	probs []float64
}

// NewBreakerModel wraps next with a circuit breaker built from config.
func NewBreakerModel(next domain.TriageModel, config domain.BreakerConfig, logger *logrus.Logger) *BreakerModel {
	if config.MaxRequests == 0 {
		config.MaxRequests = 5
	}
	if config.MinRequests == 0 {
		config.MinRequests = 3
	}
	if config.FailureRatio <= 0 {
		config.FailureRatio = 0.6
	}

	settings := gobreaker.Settings{
		Name:        "triage-model-" + next.Info().Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.MinRequests && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &BreakerModel{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (m *BreakerModel) PredictSeverity(ctx context.Context, features domain.FeatureVector) (float64, error) {
	result, err := m.breaker.Execute(func() (interface{}, error) {
		return m.next.PredictSeverity(ctx, features)
	})
	if err != nil {
		return 0, m.wrap("severity", err)
	}
	return result.(float64), nil
}

func (m *BreakerModel) PredictUrgency(ctx context.Context, features domain.FeatureVector) (int, []float64, error) {
	result, err := m.breaker.Execute(func() (interface{}, error) {
		class, probs, err := m.next.PredictUrgency(ctx, features)
		if err != nil {
			return nil, err
		}
		return urgencyOutcome{class: class, probs: probs}, nil
	})
	if err != nil {
		return 0, nil, m.wrap("urgency", err)
	}
	out := result.(urgencyOutcome)
	return out.class, out.probs, nil
}

func (m *BreakerModel) Info() domain.ModelInfo {
	return m.next.Info()
}

// Unwrap returns the decorated model.
func (m *BreakerModel) Unwrap() domain.TriageModel { return m.next }

// State exposes the breaker state for health reporting.
func (m *BreakerModel) State() gobreaker.State {
	return m.breaker.State()
}

func (m *BreakerModel) wrap(op string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.NewModelInferenceError(m.next.Info().Name, op, fmt.Errorf("circuit breaker: %w", err))
	}
	return err
}
