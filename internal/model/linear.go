// Package model provides the risk and duration estimation capabilities used
// by the triage pipeline: file-backed linear models, a remote inference
// client and decorators that add caching and circuit breaking.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/symptom"
)

// ErrDimensionMismatch is returned when a feature vector does not match the
// model's input schema.
var ErrDimensionMismatch = errors.New("feature vector dimension mismatch")

// LinearModel is a severity regression plus a softmax urgency classifier over
// the binary symptom vector.
type LinearModel struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Features        []string      `json:"features"`
	Severity        SeverityHead  `json:"severity"`
	Urgency         UrgencyHead   `json:"urgency"`
	Metrics         *ModelMetrics `json:"metrics,omitempty"`
	TrainingSamples int           `json:"training_samples,omitempty"`

	loadedAt time.Time
}

// SeverityHead is severity = Bias + sum(Weights[i] * x[i]).
type SeverityHead struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
}

// UrgencyHead holds one logit row per class.
type UrgencyHead struct {
	Classes []string    `json:"classes"`
	Bias    []float64   `json:"bias"`
	Weights [][]float64 `json:"weights"`
}

// ModelMetrics carries offline evaluation figures.
type ModelMetrics struct {
	MAE float64 `json:"mae"`
	R2  float64 `json:"r2"`
}

// LoadLinearModel reads a linear model JSON file.
func LoadLinearModel(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	return ParseLinearModel(f)
}

// ParseLinearModel decodes and structurally checks a linear model.
func ParseLinearModel(r io.Reader) (*LinearModel, error) {
	var m LinearModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	m.loadedAt = time.Now()
	return &m, nil
}

func (m *LinearModel) check() error {
	n := len(m.Features)
	if n == 0 {
		return errors.New("model has no features")
	}
	if len(m.Severity.Weights) != n {
		return fmt.Errorf("severity weights: expected %d, got %d", n, len(m.Severity.Weights))
	}
	k := len(m.Urgency.Classes)
	if k == 0 {
		return errors.New("model has no urgency classes")
	}
	if len(m.Urgency.Bias) != k || len(m.Urgency.Weights) != k {
		return fmt.Errorf("urgency head: expected %d bias and weight rows", k)
	}
	for i, row := range m.Urgency.Weights {
		if len(row) != n {
			return fmt.Errorf("urgency weights row %d: expected %d, got %d", i, n, len(row))
		}
	}
	for _, c := range m.Urgency.Classes {
		if _, err := domain.ParseUrgency(c); err != nil {
			return fmt.Errorf("urgency classes: %w", err)
		}
	}
	return nil
}

// ValidateVocabulary ensures the model's input schema equals the registered
// vocabulary in the same order.
func (m *LinearModel) ValidateVocabulary(vocabulary []string) error {
	if len(m.Features) != len(vocabulary) {
		return fmt.Errorf("model expects %d features, vocabulary has %d", len(m.Features), len(vocabulary))
	}
	for i, f := range m.Features {
		if symptom.Normalize(f) != vocabulary[i] {
			return fmt.Errorf("feature %d: model has %q, vocabulary has %q", i, f, vocabulary[i])
		}
	}
	return nil
}

// PredictSeverity implements domain.TriageModel.
func (m *LinearModel) PredictSeverity(_ context.Context, features domain.FeatureVector) (float64, error) {
	if len(features) != len(m.Severity.Weights) {
		return 0, domain.NewModelInferenceError(m.Name, "severity", ErrDimensionMismatch)
	}
	return m.Severity.Bias + dot(m.Severity.Weights, features), nil
}

// PredictUrgency implements domain.TriageModel.
func (m *LinearModel) PredictUrgency(_ context.Context, features domain.FeatureVector) (int, []float64, error) {
	if len(features) != len(m.Features) {
		return 0, nil, domain.NewModelInferenceError(m.Name, "urgency", ErrDimensionMismatch)
	}
	logits := make([]float64, len(m.Urgency.Classes))
	for k := range logits {
		logits[k] = m.Urgency.Bias[k] + dot(m.Urgency.Weights[k], features)
	}
	probs := softmax(logits)
	return argmax(probs), probs, nil
}

// Info implements domain.TriageModel.
func (m *LinearModel) Info() domain.ModelInfo {
	info := domain.ModelInfo{
		Name:            m.Name,
		Type:            "linear",
		Version:         m.Version,
		Features:        len(m.Features),
		Classes:         append([]string(nil), m.Urgency.Classes...),
		TrainingSamples: m.TrainingSamples,
		LoadedAt:        m.loadedAt,
	}
	if m.Metrics != nil {
		mae, r2 := m.Metrics.MAE, m.Metrics.R2
		info.MAE, info.R2 = &mae, &r2
	}
	return info
}

// Save writes the model as indented JSON.
func (m *LinearModel) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func dot(w []float64, x domain.FeatureVector) float64 {
	var sum float64
	for i, v := range x {
		sum += w[i] * v
	}
	return sum
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
