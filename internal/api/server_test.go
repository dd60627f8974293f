package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/model"
	"github.com/triage-risk-service/internal/reference"
	"github.com/triage-risk-service/internal/service"
	"github.com/triage-risk-service/internal/training"
)

// MockRiskAssessor is a mock implementation of RiskAssessor
type MockRiskAssessor struct {
	mock.Mock
	tables *reference.Tables
}

func (m *MockRiskAssessor) Assess(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PredictionResult), args.Error(1)
}

func (m *MockRiskAssessor) ModelInfo() domain.ModelInfo {
	return domain.ModelInfo{Name: "mock", Type: "mock", Version: "m1"}
}

func (m *MockRiskAssessor) Tables() *reference.Tables { return m.tables }

type testEnv struct {
	server *Server
	store  *training.SQLiteStore
	tables *reference.Tables
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newTestEnv(t *testing.T, risk RiskAssessor, checks map[string]HealthCheck) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := quietLogger()

	tables, err := reference.Default()
	require.NoError(t, err)

	store, err := training.NewSQLiteStore(filepath.Join(t.TempDir(), "training.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if risk == nil {
		risk = service.NewTriageService(tables, model.Bootstrap(tables), logger)
	}

	server := NewServer(Config{}, Dependencies{
		Risk:     risk,
		Duration: service.NewDurationService(nil, logger),
		Training: service.NewTrainingService(store, 50, "triagectl training export --format csv", logger),
		Checks:   checks,
	}, logger)
	return &testEnv{server: server, store: store, tables: tables}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestRiskPredict(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	t.Run("Valid_Request", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/risk/predict",
			`{"symptoms":["fever","cough","fatigue"],"gender":"female","duration":"3 days"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var result domain.PredictionResult
		decode(t, w, &result)
		assert.Equal(t, 9.0, result.Analysis.RawSeverityScore)
		assert.True(t, result.RiskScore >= 0 && result.RiskScore <= 10)
		assert.True(t, result.Urgency.IsValid())
		assert.NotEmpty(t, result.Recommendations)
		assert.LessOrEqual(t, len(result.Recommendations), service.MaxRecommendations)
		assert.Equal(t, 3, result.SymptomsAnalyzed)
		assert.Equal(t, "female", result.Gender)
		assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	})

	t.Run("Emergency_Override", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/risk/predict",
			`{"symptoms":["severe_chest_pain","shortness_of_breath","dizziness","passing_out"]}`)
		require.Equal(t, http.StatusOK, w.Code)

		var result domain.PredictionResult
		decode(t, w, &result)
		assert.Equal(t, domain.UrgencyHigh, result.Urgency)
	})

	t.Run("Empty_Symptoms", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/risk/predict", `{"symptoms":[]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body domain.ServiceError
		decode(t, w, &body)
		assert.Equal(t, domain.ErrValidation, body.Code)
		assert.Equal(t, "symptoms", body.Details)
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("Malformed_Body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/risk/predict", `{"symptoms":"fever"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRiskPredict_InternalError(t *testing.T) {
	tables, err := reference.Default()
	require.NoError(t, err)
	risk := &MockRiskAssessor{tables: tables}
	risk.On("Assess", mock.Anything, mock.Anything).Return(nil, errors.New("tables corrupted"))

	env := newTestEnv(t, risk, nil)
	w := env.do(t, http.MethodPost, "/api/v1/risk/predict", `{"symptoms":["fever"]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body domain.ServiceError
	decode(t, w, &body)
	assert.Equal(t, domain.ErrInternalServer, body.Code)
	assert.Equal(t, "tables corrupted", body.Details)
}

func TestDurationPredict(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/v1/duration/predict",
		`{"department":"GENERAL_MEDICINE","priority":"NORMAL","appointmentType":"ROUTINE","symptomCount":1,"timeOfDay":12,"dayOfWeek":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.DurationResult
	decode(t, w, &result)
	assert.Equal(t, 19, result.PredictedDuration)
	assert.Equal(t, model.DurationTypeHeuristic, result.ModelType)

	w = env.do(t, http.MethodPost, "/api/v1/duration/predict", `{"department":"DENTAL","priority":"LOW"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "Missing required field: appointmentType", body["error"])
	assert.Equal(t, 20.0, body["predictedDuration"])
	assert.Equal(t, 0.3, body["confidence"])
	assert.Equal(t, model.DurationTypeHeuristic, body["modelType"])
}

func TestTrain(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/v1/train", `{"data":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errBody domain.ServiceError
	decode(t, w, &errBody)
	assert.Equal(t, "No training data provided", errBody.Message)

	rows := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, fmt.Sprintf(
			`{"department":"DENTAL","priority":"LOW","appointmentType":"ROUTINE","symptomCount":1,"timeOfDay":10,"dayOfWeek":%d,"actualDuration":%d}`,
			i%7, 20+i%5))
	}

	w = env.do(t, http.MethodPost, "/api/v1/train", `{"data":[`+strings.Join(rows[:3], ",")+`]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var small domain.TrainingBatchResult
	decode(t, w, &small)
	assert.Equal(t, "Received 3 training samples", small.Message)
	assert.NotEmpty(t, small.SavedTo)
	assert.NotEmpty(t, small.NextStep)

	w = env.do(t, http.MethodPost, "/api/v1/train", `{"data":[`+strings.Join(rows, ",")+`]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var large domain.TrainingBatchResult
	decode(t, w, &large)
	assert.Contains(t, large.TrainingSuggestion, "53")
	assert.NotEmpty(t, large.Command)

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(53), count)
}

func TestModelInfo(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/api/v1/model-info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info ModelInfoResponse
	decode(t, w, &info)
	assert.Equal(t, "bootstrap", info.Risk.Name)
	assert.Equal(t, model.DurationTypeHeuristic, info.Duration.ModelType)
	assert.False(t, info.Duration.RequiresDayOfWeek)
	assert.Equal(t, model.HeuristicConfidence, info.Duration.Confidence)
	assert.Equal(t, env.tables.VocabularySize(), info.VocabularySize)
	assert.Equal(t, env.tables.Thresholds().Info(), info.Thresholds)
	assert.False(t, info.SuggestedRetraining)
	assert.Zero(t, info.StoredSamples)

	w = env.do(t, http.MethodPost, "/api/v1/train",
		`{"data":[{"department":"DENTAL","priority":"LOW","appointmentType":"ROUTINE","actualDuration":25}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/model-info", "")
	decode(t, w, &info)
	assert.True(t, info.SuggestedRetraining)
	assert.Equal(t, int64(1), info.StoredSamples)
}

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		env := newTestEnv(t, nil, map[string]HealthCheck{
			"training_store": func(context.Context) error { return nil },
		})
		w := env.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Components["training_store"])
		assert.Equal(t, model.HeuristicDurationVersion, body.Duration)
	})

	t.Run("Degraded", func(t *testing.T) {
		env := newTestEnv(t, nil, map[string]HealthCheck{
			"cache": func(context.Context) error { return errors.New("connection refused") },
		})
		w := env.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body HealthResponse
		decode(t, w, &body)
		assert.Equal(t, "degraded", body.Status)
		assert.Contains(t, body.Components["cache"], "connection refused")
	})
}

func TestTrain_NoStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tables, err := reference.Default()
	require.NoError(t, err)
	logger := quietLogger()

	server := NewServer(Config{}, Dependencies{
		Risk:     service.NewTriageService(tables, nil, logger),
		Duration: service.NewDurationService(nil, logger),
	}, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", bytes.NewBufferString(`{"data":[]}`))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
