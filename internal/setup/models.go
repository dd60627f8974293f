package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/model"
	"github.com/triage-risk-service/internal/reference"
)

// BuildRiskModel returns the risk model chain for cfg.Source:
//
//	none      -> model.Unavailable (every request is scored by rules)
//	bootstrap -> linear model derived from the weight table
//	file      -> linear model JSON at cfg.Path
//	remote    -> model server client at cfg.RemoteURL
//
// Non-trivial sources are wrapped in a circuit breaker and then an LRU
// memo so cache hits never touch the breaker.
func BuildRiskModel(cfg domain.ModelConfig, tables *reference.Tables, logger *logrus.Logger) (domain.TriageModel, error) {
	var base domain.TriageModel

	switch cfg.Source {
	case domain.ModelSourceNone:
		return model.Unavailable{}, nil
	case domain.ModelSourceBootstrap, "":
		base = model.Bootstrap(tables)
	case domain.ModelSourceFile:
		linear, err := model.LoadLinearModel(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("loading risk model: %w", err)
		}
		if err := linear.ValidateVocabulary(tables.Vocabulary()); err != nil {
			return nil, fmt.Errorf("risk model does not match reference vocabulary: %w", err)
		}
		base = linear
	case domain.ModelSourceRemote:
		base = model.NewRemoteModel(model.RemoteConfig{
			BaseURL:   cfg.RemoteURL,
			Timeout:   cfg.RemoteTimeout,
			RateLimit: cfg.RemoteRateLimit,
		})
	default:
		return nil, fmt.Errorf("unknown model source %q", cfg.Source)
	}

	chain := base
	if cfg.CircuitBreaker.Enabled {
		chain = model.NewBreakerModel(chain, cfg.CircuitBreaker, logger)
	}
	if cfg.CacheSize > 0 {
		cached, err := model.NewCachedModel(chain, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating model cache: %w", err)
		}
		chain = cached
	}
	return chain, nil
}

// BuildDurationModel loads the trained duration model when a path is set.
// A nil model means the heuristic answers every request.
func BuildDurationModel(cfg domain.DurationModelConfig) (domain.DurationModel, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	m, err := model.LoadLinearDuration(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("loading duration model: %w", err)
	}
	return m, nil
}
