package service

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
)

const serviceTables = `
version: svc-test
thresholds:
  moderate: 4
  high: 6
  emergency: 10
  max_realistic_score: 12
vocabulary: [fever, cough, headache, back_pain, chest_pain, rash]
weights:
  fever: 3
  cough: 2
  headache: 2
  back_pain: 2
  chest_pain: 8
  unlisted: 5
categories:
  respiratory: [cough]
  neurological: [headache]
  musculoskeletal: [back_pain]
  emergency: [chest_pain]
category_advice:
  respiratory: [r1, r2, r3, r4]
  neurological: [n1, n2, n3, n4]
  musculoskeletal: [m1, m2, m3, m4]
urgency_advice:
  low: [low1, shared]
  moderate: [mod1]
  high: [high1]
general_advice: [g1, g2, shared]
risk_tier_advice:
  emergency: [E1, E2, E3, E4]
  moderate: [M1, M2, M3, M4]
  low: [L1, L2, L3, L4]
disease_workouts:
  - disease: Back Pain
    workouts: [bp1, bp2, bp3, bp4, bp5, bp6]
  - disease: Flu
    workouts: [rest if you have a fever, fluids, sleep]
  - disease: Tension
    workouts: [t1, t2, t3, mentions headache late]
  - disease: Arthritis
    workouts: [ease joint pain gently, warm compress, light stretching]
`

func testTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Parse(strings.NewReader(serviceTables))
	require.NoError(t, err)
	return tables
}

func defaultTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Default()
	require.NoError(t, err)
	return tables
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// MockTriageModel is a mock implementation of domain.TriageModel
type MockTriageModel struct {
	mock.Mock
}

func (m *MockTriageModel) PredictSeverity(ctx context.Context, features domain.FeatureVector) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockTriageModel) PredictUrgency(ctx context.Context, features domain.FeatureVector) (int, []float64, error) {
	args := m.Called(ctx, features)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).([]float64), args.Error(2)
}

func (m *MockTriageModel) Info() domain.ModelInfo {
	return domain.ModelInfo{Name: "mock", Type: "mock", Version: "test"}
}

func newMockModel(severity float64, class int, probs []float64) *MockTriageModel {
	m := new(MockTriageModel)
	m.On("PredictSeverity", mock.Anything, mock.Anything).Return(severity, nil)
	m.On("PredictUrgency", mock.Anything, mock.Anything).Return(class, probs, nil)
	return m
}

type panickingModel struct{}

func (panickingModel) PredictSeverity(context.Context, domain.FeatureVector) (float64, error) {
	panic("index out of range")
}

func (panickingModel) PredictUrgency(context.Context, domain.FeatureVector) (int, []float64, error) {
	return 0, nil, nil
}

func (panickingModel) Info() domain.ModelInfo { return domain.ModelInfo{Name: "panicky"} }

func nan() float64 { return math.NaN() }
