package domain

import (
	"context"
)

// TriageModel is the external estimation capability consumed by the risk
// scorer. Implementations may be local files, remote inference servers or
// decorators around either.
type TriageModel interface {
	// PredictSeverity returns a severity estimate on the 0-10 scale.
	PredictSeverity(ctx context.Context, features FeatureVector) (float64, error)

	// PredictUrgency returns the winning class index and the full class
	// probability distribution.
	PredictUrgency(ctx context.Context, features FeatureVector) (int, []float64, error)

	// Info describes the model.
	Info() ModelInfo
}

// DurationModel predicts consultation length in minutes.
type DurationModel interface {
	Predict(ctx context.Context, features DurationFeatures) (*DurationResult, error)
	Info() ModelInfo
}

// TrainingSource supplies historical completed consultations.
type TrainingSource interface {
	FetchTrainingData(ctx context.Context, limit int) ([]*TrainingSample, error)
}

// ConfigManager handles application configuration
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetModelConfig() *ModelConfig
	Reload() error
	Validate() error
}
