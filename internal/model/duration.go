package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/triage-risk-service/internal/domain"
)

// Duration bounds in minutes.
const (
	MinDuration = 5
	MaxDuration = 120
)

// Model type labels reported with every duration prediction.
const (
	DurationTypeTrained   = "ml-trained"
	DurationTypeHeuristic = "heuristic"
	DurationTypeFallback  = "fallback"
)

var departmentBase = map[string]float64{
	"GENERAL_MEDICINE": 15,
	"EMERGENCY":        25,
	"PEDIATRICS":       20,
	"MENTAL_HEALTH":    45,
	"DENTAL":           30,
}

var priorityMultiplier = map[string]float64{
	"LOW":    0.8,
	"NORMAL": 1.0,
	"HIGH":   1.5,
	"URGENT": 2.0,
}

// HeuristicDuration estimates consultation length from department, priority,
// symptom count and time of day. It never fails.
type HeuristicDuration struct{}

// HeuristicDurationVersion identifies the rule set.
const HeuristicDurationVersion = "v0.1-heuristic"

// HeuristicConfidence is reported with every heuristic estimate.
const HeuristicConfidence = 0.65

func (HeuristicDuration) Predict(_ context.Context, f domain.DurationFeatures) (*domain.DurationResult, error) {
	base, ok := departmentBase[strings.ToUpper(f.Department)]
	if !ok {
		base = 15
	}
	mult, ok := priorityMultiplier[strings.ToUpper(f.Priority)]
	if !ok {
		mult = 1.0
	}

	timeMult := 1.0
	switch {
	case f.TimeOfDay >= 8 && f.TimeOfDay <= 11:
		timeMult = 0.9
	case f.TimeOfDay >= 12 && f.TimeOfDay <= 14:
		timeMult = 1.1
	}

	predicted := int(base*mult*timeMult + float64(f.SymptomCount)*2.5)
	return &domain.DurationResult{
		PredictedDuration: clampDuration(predicted),
		Confidence:        HeuristicConfidence,
		ModelVersion:      HeuristicDurationVersion,
		ModelType:         DurationTypeHeuristic,
	}, nil
}

func (HeuristicDuration) Info() domain.ModelInfo {
	return domain.ModelInfo{Name: "duration-heuristic", Type: DurationTypeHeuristic, Version: HeuristicDurationVersion}
}

// LinearDuration is a trained additive duration model: an intercept, one
// coefficient per known categorical level and one per numeric feature.
type LinearDuration struct {
	Version         string             `json:"version"`
	Intercept       float64            `json:"intercept"`
	Department      map[string]float64 `json:"department"`
	Priority        map[string]float64 `json:"priority"`
	AppointmentType map[string]float64 `json:"appointment_type"`
	SymptomCount    float64            `json:"symptom_count"`
	TimeOfDay       float64            `json:"time_of_day"`
	DayOfWeek       float64            `json:"day_of_week"`
	Metrics         *ModelMetrics      `json:"metrics,omitempty"`
	TrainingSamples int                `json:"training_samples,omitempty"`

	loadedAt time.Time
}

// LoadLinearDuration reads a trained duration model from a JSON file.
func LoadLinearDuration(path string) (*LinearDuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duration model: %w", err)
	}
	defer f.Close()
	return ParseLinearDuration(f)
}

// ParseLinearDuration decodes a trained duration model.
func ParseLinearDuration(r io.Reader) (*LinearDuration, error) {
	var m LinearDuration
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode duration model: %w", err)
	}
	if len(m.Department) == 0 || len(m.Priority) == 0 || len(m.AppointmentType) == 0 {
		return nil, fmt.Errorf("duration model %q is missing categorical coefficients", m.Version)
	}
	m.loadedAt = time.Now()
	return &m, nil
}

// Predict fails on categorical levels not seen during training.
func (m *LinearDuration) Predict(_ context.Context, f domain.DurationFeatures) (*domain.DurationResult, error) {
	dept, err := level(m.Department, "department", f.Department)
	if err != nil {
		return nil, err
	}
	prio, err := level(m.Priority, "priority", f.Priority)
	if err != nil {
		return nil, err
	}
	appt, err := level(m.AppointmentType, "appointmentType", f.AppointmentType)
	if err != nil {
		return nil, err
	}

	predicted := m.Intercept + dept + prio + appt +
		m.SymptomCount*float64(f.SymptomCount) +
		m.TimeOfDay*float64(f.TimeOfDay) +
		m.DayOfWeek*float64(f.DayOfWeek)
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return nil, domain.NewModelInferenceError("duration-linear", "predict", fmt.Errorf("non-finite prediction"))
	}

	confidence := HeuristicConfidence
	if m.Metrics != nil {
		confidence = 1.0 / (1.0 + m.Metrics.MAE/math.Max(predicted, 1))
		confidence = math.Round(confidence*100) / 100
	}

	return &domain.DurationResult{
		PredictedDuration: clampDuration(int(predicted)),
		Confidence:        confidence,
		ModelVersion:      m.Version,
		ModelType:         DurationTypeTrained,
	}, nil
}

func (m *LinearDuration) Info() domain.ModelInfo {
	info := domain.ModelInfo{
		Name:            "duration-linear",
		Type:            DurationTypeTrained,
		Version:         m.Version,
		Features:        6,
		TrainingSamples: m.TrainingSamples,
		LoadedAt:        m.loadedAt,
	}
	if m.Metrics != nil {
		mae, r2 := m.Metrics.MAE, m.Metrics.R2
		info.MAE, info.R2 = &mae, &r2
	}
	return info
}

func level(coefficients map[string]float64, field, value string) (float64, error) {
	v, ok := coefficients[strings.ToUpper(value)]
	if !ok {
		return 0, domain.NewModelInferenceError("duration-linear", "predict",
			fmt.Errorf("unseen %s %q", field, value))
	}
	return v, nil
}

func clampDuration(minutes int) int {
	if minutes < MinDuration {
		return MinDuration
	}
	if minutes > MaxDuration {
		return MaxDuration
	}
	return minutes
}
