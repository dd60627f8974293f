// Package reference loads the static triage reference data: the symptom
// vocabulary, severity weights, category definitions, advice tables and the
// threshold set. Tables are immutable once loaded and safe for concurrent use.
package reference

import (
	"github.com/triage-risk-service/internal/domain"
)

// BlockSize is the number of strings in every category and risk-tier block.
const BlockSize = 4

// Thresholds are ascending cutoffs over the raw weight sum plus the raw value
// that maps to 10.0 on the normalized scale.
type Thresholds struct {
	Moderate          float64 `yaml:"moderate" json:"moderate"`
	High              float64 `yaml:"high" json:"high"`
	Emergency         float64 `yaml:"emergency" json:"emergency"`
	MaxRealisticScore float64 `yaml:"max_realistic_score" json:"max_realistic_score"`
}

// Info converts the thresholds to their response form.
func (t Thresholds) Info() domain.ThresholdInfo {
	return domain.ThresholdInfo{
		Moderate:          t.Moderate,
		High:              t.High,
		Emergency:         t.Emergency,
		MaxRealisticScore: t.MaxRealisticScore,
	}
}

// DiseaseWorkouts links a condition name to ordered self-care suggestions.
type DiseaseWorkouts struct {
	Disease  string   `yaml:"disease"`
	Workouts []string `yaml:"workouts"`
}

// RiskTierAdvice holds the fixed block appended for each risk tier.
type RiskTierAdvice struct {
	Emergency []string `yaml:"emergency"`
	Moderate  []string `yaml:"moderate"`
	Low       []string `yaml:"low"`
}

// Tables is the validated, read-only reference data set.
type Tables struct {
	version         string
	thresholds      Thresholds
	vocabulary      []string
	weights         map[string]float64
	symptomCategory map[string]domain.Category
	categoryAdvice  map[domain.Category][]string
	urgencyAdvice   map[domain.Urgency][]string
	generalAdvice   []string
	riskTierAdvice  RiskTierAdvice
	diseaseWorkouts []DiseaseWorkouts
}

// Version identifies the table set.
func (t *Tables) Version() string { return t.version }

// Thresholds returns the threshold set.
func (t *Tables) Thresholds() Thresholds { return t.thresholds }

// Vocabulary returns a copy of the ordered symptom vocabulary.
func (t *Tables) Vocabulary() []string {
	return cloneStrings(t.vocabulary)
}

// VocabularySize returns the feature vector dimension.
func (t *Tables) VocabularySize() int { return len(t.vocabulary) }

// Weight returns the severity weight of a canonical symptom; unknown symptoms weigh zero.
func (t *Tables) Weight(symptom string) float64 {
	return t.weights[symptom]
}

// Weights returns a copy of the weight table.
func (t *Tables) Weights() map[string]float64 {
	out := make(map[string]float64, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

// Category returns the runtime category of a canonical symptom.
func (t *Tables) Category(symptom string) (domain.Category, bool) {
	c, ok := t.symptomCategory[symptom]
	return c, ok
}

// CategoryAdvice returns the advice block for a category, or nil when the
// category has none.
func (t *Tables) CategoryAdvice(c domain.Category) []string {
	return cloneStrings(t.categoryAdvice[c])
}

// UrgencyAdvice returns the urgency-keyed advice list.
func (t *Tables) UrgencyAdvice(u domain.Urgency) []string {
	return cloneStrings(t.urgencyAdvice[u])
}

// GeneralAdvice returns the general health advice in registration order.
func (t *Tables) GeneralAdvice() []string {
	return cloneStrings(t.generalAdvice)
}

// RiskTierAdvice returns a copy of the risk-tier blocks.
func (t *Tables) RiskTierAdvice() RiskTierAdvice {
	return RiskTierAdvice{
		Emergency: cloneStrings(t.riskTierAdvice.Emergency),
		Moderate:  cloneStrings(t.riskTierAdvice.Moderate),
		Low:       cloneStrings(t.riskTierAdvice.Low),
	}
}

// DiseaseWorkouts returns a deep copy of the disease to workout table in
// registration order.
func (t *Tables) DiseaseWorkouts() []DiseaseWorkouts {
	out := make([]DiseaseWorkouts, len(t.diseaseWorkouts))
	for i, dw := range t.diseaseWorkouts {
		out[i] = DiseaseWorkouts{Disease: dw.Disease, Workouts: cloneStrings(dw.Workouts)}
	}
	return out
}

// WithWeights returns a copy of t whose weight table is replaced. The
// receiver is left untouched.
func (t *Tables) WithWeights(weights map[string]float64) (*Tables, error) {
	clone := *t
	clone.weights = make(map[string]float64, len(weights))
	for k, v := range weights {
		clone.weights[k] = v
	}
	if err := validateWeights(clone.weights); err != nil {
		return nil, err
	}
	return &clone, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
