package service

import (
	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
)

// Risk score cutoffs for the urgency tiers.
const (
	highRiskScore     = 8.0
	moderateRiskScore = 5.0
)

// emergencySymptoms force high urgency regardless of any score.
var emergencySymptoms = map[string]struct{}{
	"chest_pain":           {},
	"severe_chest_pain":    {},
	"shortness_of_breath":  {},
	"difficulty_breathing": {},
	"passing_out":          {},
	"coma":                 {},
	"stroke":               {},
	"heart_attack":         {},
	"severe_bleeding":      {},
	"severe_head_injury":   {},
}

// IsEmergencySymptom reports whether a canonical symptom triggers the
// emergency override.
func IsEmergencySymptom(s string) bool {
	_, ok := emergencySymptoms[s]
	return ok
}

// UrgencyClassifier maps scores and symptoms to an urgency tier.
type UrgencyClassifier struct {
	thresholds reference.Thresholds
}

func NewUrgencyClassifier(thresholds reference.Thresholds) *UrgencyClassifier {
	return &UrgencyClassifier{thresholds: thresholds}
}

// Classify evaluates the tiers in precedence order. The raw-severity branch
// for "high" uses the emergency threshold and the one for "moderate" uses the
// high threshold.
func (c *UrgencyClassifier) Classify(raw, risk float64, symptoms []string) domain.Urgency {
	for _, s := range symptoms {
		if IsEmergencySymptom(s) {
			return domain.UrgencyHigh
		}
	}
	if raw >= c.thresholds.Emergency || risk >= highRiskScore {
		return domain.UrgencyHigh
	}
	if raw >= c.thresholds.High || risk >= moderateRiskScore {
		return domain.UrgencyModerate
	}
	return domain.UrgencyLow
}
