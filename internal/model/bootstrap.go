package model

import (
	"time"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
)

// bootstrapSharpness scales the urgency logits; larger values make the
// bootstrap classifier more confident away from the thresholds.
const bootstrapSharpness = 0.5

// Bootstrap derives a baseline linear model from the reference tables, for
// deployments that have no trained model yet.
//
// Severity reproduces the rule-based scale (weight / max realistic * 10).
// With z the raw weight sum, the urgency logits are
//
//	low      = 0
//	moderate = k(z - high)
//	high     = k(2z - high - emergency)
//
// so moderate overtakes low at the high threshold and high overtakes
// moderate at the emergency threshold.
func Bootstrap(tables *reference.Tables) *LinearModel {
	vocabulary := tables.Vocabulary()
	th := tables.Thresholds()
	k := bootstrapSharpness

	severity := make([]float64, len(vocabulary))
	moderate := make([]float64, len(vocabulary))
	high := make([]float64, len(vocabulary))
	low := make([]float64, len(vocabulary))
	for i, s := range vocabulary {
		w := tables.Weight(s)
		severity[i] = w / th.MaxRealisticScore * 10
		moderate[i] = k * w
		high[i] = 2 * k * w
	}

	return &LinearModel{
		Name:     "bootstrap",
		Version:  "bootstrap-" + tables.Version(),
		Features: vocabulary,
		Severity: SeverityHead{Weights: severity},
		Urgency: UrgencyHead{
			Classes: []string{
				string(domain.UrgencyLow),
				string(domain.UrgencyModerate),
				string(domain.UrgencyHigh),
			},
			Bias:    []float64{0, -k * th.High, -k * (th.High + th.Emergency)},
			Weights: [][]float64{low, moderate, high},
		},
		loadedAt: time.Now(),
	}
}
