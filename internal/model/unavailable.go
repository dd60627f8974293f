package model

import (
	"context"
	"errors"

	"github.com/triage-risk-service/internal/domain"
)

// ErrModelUnavailable is returned by Unavailable for every prediction.
var ErrModelUnavailable = errors.New("no risk model loaded")

// Unavailable stands in when no model is configured, so every request takes
// the rule-based path.
type Unavailable struct{}

func (Unavailable) PredictSeverity(context.Context, domain.FeatureVector) (float64, error) {
	return 0, ErrModelUnavailable
}

func (Unavailable) PredictUrgency(context.Context, domain.FeatureVector) (int, []float64, error) {
	return 0, nil, ErrModelUnavailable
}

func (Unavailable) Info() domain.ModelInfo {
	return domain.ModelInfo{Name: "none", Type: "unavailable", Version: "n/a"}
}
