package setup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/model"
	"github.com/triage-risk-service/internal/reference"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	return &domain.Config{
		Model: domain.ModelConfig{
			Source:    domain.ModelSourceBootstrap,
			CacheSize: 64,
			CircuitBreaker: domain.BreakerConfig{
				Enabled:      true,
				FailureRatio: 0.6,
			},
		},
		Training: domain.TrainingConfig{
			Driver:           "sqlite",
			SQLitePath:       filepath.Join(t.TempDir(), "training.db"),
			RetrainThreshold: 50,
		},
	}
}

func TestBuildRiskModel(t *testing.T) {
	tables, err := reference.Default()
	require.NoError(t, err)
	logger := quietLogger()

	t.Run("None", func(t *testing.T) {
		m, err := BuildRiskModel(domain.ModelConfig{Source: domain.ModelSourceNone}, tables, logger)
		require.NoError(t, err)
		assert.IsType(t, model.Unavailable{}, m)
	})

	t.Run("Bootstrap_Decorated", func(t *testing.T) {
		cfg := testConfig(t).Model
		m, err := BuildRiskModel(cfg, tables, logger)
		require.NoError(t, err)

		cached, ok := m.(*model.CachedModel)
		require.True(t, ok)
		breaker, ok := cached.Unwrap().(*model.BreakerModel)
		require.True(t, ok)
		assert.IsType(t, &model.LinearModel{}, breaker.Unwrap())
		assert.Equal(t, "bootstrap", m.Info().Name)
	})

	t.Run("Bootstrap_Plain", func(t *testing.T) {
		m, err := BuildRiskModel(domain.ModelConfig{Source: domain.ModelSourceBootstrap}, tables, logger)
		require.NoError(t, err)
		assert.IsType(t, &model.LinearModel{}, m)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk_model.json")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, model.Bootstrap(tables).Save(f))
		require.NoError(t, f.Close())

		m, err := BuildRiskModel(domain.ModelConfig{Source: domain.ModelSourceFile, Path: path}, tables, logger)
		require.NoError(t, err)
		assert.Equal(t, tables.VocabularySize(), m.Info().Features)
	})

	t.Run("File_Missing", func(t *testing.T) {
		_, err := BuildRiskModel(domain.ModelConfig{Source: domain.ModelSourceFile, Path: "/nonexistent/model.json"}, tables, logger)
		assert.Error(t, err)
	})

	t.Run("Remote", func(t *testing.T) {
		m, err := BuildRiskModel(domain.ModelConfig{Source: domain.ModelSourceRemote, RemoteURL: "http://localhost:8501"}, tables, logger)
		require.NoError(t, err)
		_, ok := findRemote(m)
		assert.True(t, ok)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := BuildRiskModel(domain.ModelConfig{Source: "magic"}, tables, logger)
		assert.Error(t, err)
	})
}

func TestBuildDurationModel(t *testing.T) {
	m, err := BuildDurationModel(domain.DurationModelConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = BuildDurationModel(domain.DurationModelConfig{Path: "/nonexistent/duration.json"})
	assert.Error(t, err)
}

func TestOpenTrainingStore(t *testing.T) {
	cfg := testConfig(t)
	store, err := OpenTrainingStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	cfg.Training.Driver = "mongo"
	_, err = OpenTrainingStore(cfg)
	assert.Error(t, err)
}

func TestNewRuntime(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx, testConfig(t), quietLogger())
	require.NoError(t, err)
	defer rt.Close()

	result, err := rt.Triage.Assess(ctx, &domain.PredictionRequest{Symptoms: []string{"fever", "cough"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ScoringMethodModel, result.Analysis.ScoringMethod)

	deps := rt.Dependencies()
	require.Contains(t, deps.Checks, "training_store")
	assert.NoError(t, deps.Checks["training_store"](ctx))
	assert.NotContains(t, deps.Checks, "risk_model")
}

func TestNewRuntime_RemoteHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"model_version_status":[{"state":"AVAILABLE"}]}`))
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Model.Source = domain.ModelSourceRemote
	cfg.Model.RemoteURL = server.URL

	rt, err := NewRuntime(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer rt.Close()

	require.Contains(t, rt.Checks, "risk_model")
	assert.NoError(t, rt.Checks["risk_model"](context.Background()))
}

func TestNewRuntime_BadTables(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reference.TablesPath = "/nonexistent/tables.yaml"
	_, err := NewRuntime(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}
