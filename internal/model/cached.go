package model

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/triage-risk-service/internal/domain"
)

type urgencyEntry struct {
	class int
	probs []float64
}

// CachedModel memoizes successful predictions by feature vector. Failures and
// output that can never pass scoring (non-finite severity, an empty or
// out-of-range distribution) are never cached.
type CachedModel struct {
	next     domain.TriageModel
	severity *lru.Cache[string, float64]
	urgency  *lru.Cache[string, urgencyEntry]
}

// NewCachedModel wraps next with two LRU caches of the given size.
func NewCachedModel(next domain.TriageModel, size int) (*CachedModel, error) {
	severity, err := lru.New[string, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create severity cache: %w", err)
	}
	urgency, err := lru.New[string, urgencyEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create urgency cache: %w", err)
	}
	return &CachedModel{next: next, severity: severity, urgency: urgency}, nil
}

func (m *CachedModel) PredictSeverity(ctx context.Context, features domain.FeatureVector) (float64, error) {
	key := features.Key()
	if v, ok := m.severity.Get(key); ok {
		return v, nil
	}
	v, err := m.next.PredictSeverity(ctx, features)
	if err != nil {
		return 0, err
	}
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		m.severity.Add(key, v)
	}
	return v, nil
}

func (m *CachedModel) PredictUrgency(ctx context.Context, features domain.FeatureVector) (int, []float64, error) {
	key := features.Key()
	if e, ok := m.urgency.Get(key); ok {
		return e.class, append([]float64(nil), e.probs...), nil
	}
	class, probs, err := m.next.PredictUrgency(ctx, features)
	if err != nil {
		return 0, nil, err
	}
	if class >= 0 && class < len(probs) {
		m.urgency.Add(key, urgencyEntry{class: class, probs: append([]float64(nil), probs...)})
	}
	return class, probs, nil
}

func (m *CachedModel) Info() domain.ModelInfo {
	return m.next.Info()
}

// Unwrap returns the decorated model.
func (m *CachedModel) Unwrap() domain.TriageModel { return m.next }

// Len reports the number of cached severity and urgency entries.
func (m *CachedModel) Len() (int, int) {
	return m.severity.Len(), m.urgency.Len()
}
