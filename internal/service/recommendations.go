package service

import (
	"strings"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
	"github.com/triage-risk-service/internal/symptom"
)

const (
	// MaxRecommendations caps the assembled list.
	MaxRecommendations = 15

	workoutsPerDisease = 5
	workoutMatchDepth  = 3
)

type workoutEntry struct {
	key      string
	leading  []string
	workouts []string
}

// RecommendationAssembler merges advice from the urgency, category, general,
// workout and risk-tier tables into one ordered list.
type RecommendationAssembler struct {
	tables   *reference.Tables
	workouts []workoutEntry
}

// NewRecommendationAssembler precomputes the workout match keys.
func NewRecommendationAssembler(tables *reference.Tables) *RecommendationAssembler {
	diseases := tables.DiseaseWorkouts()
	entries := make([]workoutEntry, 0, len(diseases))
	for _, dw := range diseases {
		leading := make([]string, 0, workoutMatchDepth)
		for i, w := range dw.Workouts {
			if i == workoutMatchDepth {
				break
			}
			leading = append(leading, strings.ToLower(w))
		}
		entries = append(entries, workoutEntry{
			key:      symptom.Normalize(dw.Disease),
			leading:  leading,
			workouts: dw.Workouts,
		})
	}
	return &RecommendationAssembler{tables: tables, workouts: entries}
}

// Assemble builds the recommendation list for normalized symptoms. The result
// holds at most MaxRecommendations distinct strings in first-seen order.
func (a *RecommendationAssembler) Assemble(symptoms []string, urgency domain.Urgency, risk float64) []string {
	recs := a.tables.UrgencyAdvice(urgency)

	for _, c := range a.categories(symptoms) {
		recs = append(recs, a.tables.CategoryAdvice(c)...)
	}

	recs = append(recs, a.tables.GeneralAdvice()...)
	recs = a.appendWorkouts(recs, symptoms)

	tiers := a.tables.RiskTierAdvice()
	switch {
	case risk >= highRiskScore:
		recs = append(recs, tiers.Emergency...)
	case risk >= moderateRiskScore:
		recs = append(recs, tiers.Moderate...)
	default:
		recs = append(recs, tiers.Low...)
	}

	recs = distinct(recs)
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

// categories returns the touched categories in enumeration order.
func (a *RecommendationAssembler) categories(symptoms []string) []domain.Category {
	touched := make(map[domain.Category]bool)
	for _, s := range symptoms {
		if c, ok := a.tables.Category(s); ok {
			touched[c] = true
		}
	}
	out := make([]domain.Category, 0, len(touched))
	for _, c := range domain.Categories {
		if touched[c] {
			out = append(out, c)
		}
	}
	return out
}

// appendWorkouts adds self-care suggestions for diseases whose name or
// leading workouts mention a symptom. This is a plain substring heuristic
// over free text, not a clinical symptom-to-disease mapping. Workout text is
// prose, so a leading workout also matches when it contains the symptom with
// underscores read as spaces ("joint_pain" matches "ease joint pain gently").
func (a *RecommendationAssembler) appendWorkouts(recs, symptoms []string) []string {
	for _, s := range distinct(symptoms) {
		phrase := strings.ReplaceAll(s, "_", " ")
		for _, e := range a.workouts {
			if len(recs) >= MaxRecommendations {
				return recs
			}
			if !e.matches(s, phrase) {
				continue
			}
			n := len(e.workouts)
			if n > workoutsPerDisease {
				n = workoutsPerDisease
			}
			recs = append(recs, e.workouts[:n]...)
		}
	}
	return recs
}

func (e workoutEntry) matches(id, phrase string) bool {
	if strings.Contains(e.key, id) {
		return true
	}
	for _, p := range e.leading {
		if strings.Contains(p, id) || strings.Contains(p, phrase) {
			return true
		}
	}
	return false
}
