// Package setup assembles the runtime shared by the HTTP server and the
// triagectl CLI: reference tables, the risk model chain, the duration model,
// the training store and the optional prediction cache.
package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/api"
	"github.com/triage-risk-service/internal/cache"
	"github.com/triage-risk-service/internal/database"
	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/model"
	"github.com/triage-risk-service/internal/reference"
	"github.com/triage-risk-service/internal/service"
	"github.com/triage-risk-service/internal/training"
)

// Runtime holds every long-lived component. Close releases them.
type Runtime struct {
	Config   *domain.Config
	Logger   *logrus.Logger
	Tables   *reference.Tables
	Model    domain.TriageModel
	Triage   *service.TriageService
	Duration *service.DurationService
	Store    training.Store
	Training *service.TrainingService
	Checks   map[string]api.HealthCheck

	redis *redis.Client
}

// NewRuntime builds the runtime from cfg. Reference table or model load
// failures are returned and must stop startup.
func NewRuntime(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Checks: make(map[string]api.HealthCheck),
	}

	tables, err := reference.LoadWithWeights(cfg.Reference.TablesPath, cfg.Reference.WeightsPath)
	if err != nil {
		return nil, fmt.Errorf("loading reference tables: %w", err)
	}
	rt.Tables = tables

	riskModel, err := BuildRiskModel(cfg.Model, tables, logger)
	if err != nil {
		return nil, err
	}
	rt.Model = riskModel
	if remote, ok := findRemote(riskModel); ok {
		rt.Checks["risk_model"] = remote.Health
	}

	durationModel, err := BuildDurationModel(cfg.DurationModel)
	if err != nil {
		return nil, err
	}
	rt.Duration = service.NewDurationService(durationModel, logger)

	var opts []service.TriageOption
	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			return nil, err
		}
		rt.redis = client
		namespace := riskModel.Info().Version + "/" + tables.Version()
		predictionCache := cache.NewPredictionCache(client, namespace, cfg.Cache.DefaultTTL, logger)
		opts = append(opts, service.WithResultCache(predictionCache))
		rt.Checks["cache"] = predictionCache.Health
	}
	rt.Triage = service.NewTriageService(tables, riskModel, logger, opts...)

	store, err := OpenTrainingStore(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = store
	rt.Training = service.NewTrainingService(store, cfg.Training.RetrainThreshold, cfg.Training.RetrainCommand, logger)
	rt.Checks["training_store"] = func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	}

	info := riskModel.Info()
	logger.WithFields(logrus.Fields{
		"model_source":   cfg.Model.Source,
		"model_name":     info.Name,
		"model_version":  info.Version,
		"duration_model": rt.Duration.ActiveModel().Version,
		"tables_version": tables.Version(),
		"vocabulary":     tables.VocabularySize(),
		"training_store": cfg.Training.Driver,
		"cache_enabled":  cfg.Cache.Enabled,
	}).Info("Runtime initialised")

	return rt, nil
}

// Dependencies returns the API wiring for this runtime.
func (rt *Runtime) Dependencies() api.Dependencies {
	return api.Dependencies{
		Risk:     rt.Triage,
		Duration: rt.Duration,
		Training: rt.Training,
		Checks:   rt.Checks,
	}
}

// Close releases the training store and redis client.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			firstErr = err
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenTrainingStore opens the configured training sample store. The postgres
// store falls back to the database section when no URL is configured.
func OpenTrainingStore(cfg *domain.Config) (training.Store, error) {
	switch strings.ToLower(cfg.Training.Driver) {
	case "", "sqlite":
		store, err := training.NewSQLiteStore(cfg.Training.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite training store: %w", err)
		}
		return store, nil
	case "postgres":
		url := cfg.Training.DatabaseURL
		if url == "" {
			url = database.URL(cfg.Database)
		}
		store, err := training.NewPostgresStoreFromURL(url)
		if err != nil {
			return nil, fmt.Errorf("opening postgres training store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown training driver %q", cfg.Training.Driver)
	}
}

// findRemote walks decorator layers looking for a model server client.
func findRemote(m domain.TriageModel) (*model.RemoteModel, bool) {
	for m != nil {
		if remote, ok := m.(*model.RemoteModel); ok {
			return remote, true
		}
		inner, ok := m.(interface{ Unwrap() domain.TriageModel })
		if !ok {
			return nil, false
		}
		m = inner.Unwrap()
	}
	return nil, false
}
