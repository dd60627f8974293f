package domain

import (
	"strings"
	"time"
)

// PredictionRequest is the risk assessment input. Gender, Duration and
// Severity are passthrough descriptors and never affect scoring.
type PredictionRequest struct {
	Symptoms []string `json:"symptoms"`
	Age      *int     `json:"age,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Severity string   `json:"severity,omitempty"`
}

// PredictionResult is the risk assessment output.
type PredictionResult struct {
	RiskScore            float64       `json:"risk_score"`
	Confidence           float64       `json:"confidence"`
	Urgency              Urgency       `json:"urgency"`
	Recommendations      []string      `json:"recommendations"`
	SymptomsAnalyzed     int           `json:"symptoms_analyzed"`
	Analysis             Analysis      `json:"analysis"`
	ThresholdInfo        ThresholdInfo `json:"threshold_info"`
	Age                  *int          `json:"age,omitempty"`
	Gender               string        `json:"gender,omitempty"`
	Duration             string        `json:"duration,omitempty"`
	UserReportedSeverity string        `json:"user_reported_severity,omitempty"`
}

// Analysis carries the diagnostic sub-scores behind a risk score.
type Analysis struct {
	RawSeverityScore    float64       `json:"raw_severity_score"`
	MLBasedPrediction   float64       `json:"ml_based_prediction"`
	RuleBasedPrediction float64       `json:"rule_based_prediction"`
	ScoringMethod       ScoringMethod `json:"scoring_method"`
	AgeAdjusted         bool          `json:"age_adjusted"`
}

// ThresholdInfo echoes the threshold set used to classify a request.
type ThresholdInfo struct {
	Moderate          float64 `json:"moderate"`
	High              float64 `json:"high"`
	Emergency         float64 `json:"emergency"`
	MaxRealisticScore float64 `json:"max_realistic_score"`
}

// FeatureVector is a binary encoding of a symptom set in vocabulary order.
type FeatureVector []float64

// Key renders the vector as a compact bitstring suitable for cache keys.
func (v FeatureVector) Key() string {
	var b strings.Builder
	b.Grow(len(v))
	for _, x := range v {
		if x != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Active returns the number of set positions.
func (v FeatureVector) Active() int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}

// ModelInfo describes a loaded model for /model-info and logging.
type ModelInfo struct {
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Version         string    `json:"version"`
	Features        int       `json:"features,omitempty"`
	Classes         []string  `json:"classes,omitempty"`
	MAE             *float64  `json:"mae,omitempty"`
	R2              *float64  `json:"r2,omitempty"`
	TrainingSamples int       `json:"training_samples,omitempty"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// DurationRequest is the consultation duration input.
type DurationRequest struct {
	Department      string `json:"department"`
	Priority        string `json:"priority"`
	AppointmentType string `json:"appointmentType"`
	SymptomCount    *int   `json:"symptomCount,omitempty"`
	TimeOfDay       *int   `json:"timeOfDay,omitempty"`
	DayOfWeek       *int   `json:"dayOfWeek,omitempty"`
}

// DurationFeatures is a DurationRequest with defaults applied.
type DurationFeatures struct {
	Department      string
	Priority        string
	AppointmentType string
	SymptomCount    int
	TimeOfDay       int
	DayOfWeek       int
}

// DurationResult is the consultation duration output.
type DurationResult struct {
	PredictedDuration int     `json:"predictedDuration"`
	Confidence        float64 `json:"confidence"`
	ModelVersion      string  `json:"modelVersion"`
	ModelType         string  `json:"modelType"`
}

// TrainingSample is one completed consultation used to retrain the duration model.
type TrainingSample struct {
	ID                int64     `json:"id,omitempty"`
	BatchID           string    `json:"batchId,omitempty"`
	Seq               int       `json:"seq"`
	Department        string    `json:"department"`
	Priority          string    `json:"priority"`
	AppointmentType   string    `json:"appointmentType"`
	SymptomCount      int       `json:"symptomCount"`
	TimeOfDay         int       `json:"timeOfDay"`
	DayOfWeek         int       `json:"dayOfWeek"`
	ActualDuration    float64   `json:"actualDuration"`
	PredictedDuration float64   `json:"predictedDuration,omitempty"`
	Source            string    `json:"source,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// TrainingBatchResult summarises a persisted training upload.
type TrainingBatchResult struct {
	Message            string `json:"message"`
	SavedTo            string `json:"savedTo"`
	Samples            int    `json:"samples"`
	TotalSamples       int64  `json:"totalSamples"`
	TrainingSuggestion string `json:"trainingSuggestion,omitempty"`
	Command            string `json:"command,omitempty"`
	NextStep           string `json:"nextStep,omitempty"`
}
