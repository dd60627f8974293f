package service

import (
	"math"

	"github.com/triage-risk-service/internal/domain"
)

const (
	// SeniorAge is the age above which risk and urgency are escalated.
	SeniorAge = 60

	ageRiskIncrement = 0.5
)

// AdjustForAge escalates risk and urgency for patients older than SeniorAge.
// It never lowers either value; adjusted reports whether the rule applied.
func AdjustForAge(age int, risk float64, urgency domain.Urgency) (float64, domain.Urgency, bool) {
	if age <= SeniorAge {
		return risk, urgency, false
	}

	adjusted := math.Min(maxRiskScore, round1(risk+ageRiskIncrement))
	switch urgency {
	case domain.UrgencyModerate:
		urgency = domain.UrgencyHigh
	case domain.UrgencyLow:
		if adjusted >= moderateRiskScore {
			urgency = domain.UrgencyModerate
		}
	}
	return adjusted, urgency, true
}
