// Package domain contains the core entities, configuration structures and
// collaborator interfaces of the symptom triage service.
//
// The triage pipeline turns a free-text symptom list into a bounded 0-10 risk
// score, a three-level urgency label and an ordered list of recommendations.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Urgency is the primary triage output.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyModerate Urgency = "moderate"
	UrgencyHigh     Urgency = "high"
)

// Category groups canonical symptoms by body system.
type Category string

const (
	CategoryRespiratory      Category = "respiratory"
	CategoryGastrointestinal Category = "gastrointestinal"
	CategoryNeurological     Category = "neurological"
	CategoryMusculoskeletal  Category = "musculoskeletal"
	CategoryEmergency        Category = "emergency"
)

// Categories lists every category in enumeration order. This order decides
// which category wins when a symptom is listed under more than one definition,
// and the order in which category advice blocks are emitted.
var Categories = []Category{
	CategoryRespiratory,
	CategoryGastrointestinal,
	CategoryNeurological,
	CategoryMusculoskeletal,
	CategoryEmergency,
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidUrgency  = errors.New("invalid urgency label")
	ErrInvalidCategory = errors.New("invalid symptom category")
)

// IsValid reports whether u is one of the three urgency tiers.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyModerate, UrgencyHigh:
		return true
	default:
		return false
	}
}

func (u Urgency) String() string {
	return string(u)
}

// Rank orders urgency tiers so escalation can be compared numerically.
// Unknown labels rank below low.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyModerate:
		return 2
	case UrgencyHigh:
		return 3
	default:
		return 0
	}
}

// ParseUrgency converts a case-insensitive label into an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
	}
	return u, nil
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Order returns the position of c in enumeration order, or -1 when unknown.
func (c Category) Order() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

// ParseCategory converts a case-insensitive label into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ScoringMethod records which branch of the risk scorer produced a result.
type ScoringMethod string

const (
	ScoringMethodModel    ScoringMethod = "model"
	ScoringMethodFallback ScoringMethod = "rule_based_fallback"
)

// ModelSource selects how the risk model is obtained at startup.
type ModelSource string

const (
	ModelSourceNone      ModelSource = "none"
	ModelSourceFile      ModelSource = "file"
	ModelSourceBootstrap ModelSource = "bootstrap"
	ModelSourceRemote    ModelSource = "remote"
)

// IsValid reports whether s is a supported model source.
func (s ModelSource) IsValid() bool {
	switch s {
	case ModelSourceNone, ModelSourceFile, ModelSourceBootstrap, ModelSourceRemote:
		return true
	default:
		return false
	}
}
