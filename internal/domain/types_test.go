package domain

import (
	"errors"
	"testing"
)

func TestUrgencyConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Urgency
		expected string
		rank     int
	}{
		{"Low", UrgencyLow, "low", 1},
		{"Moderate", UrgencyModerate, "moderate", 2},
		{"High", UrgencyHigh, "high", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.String())
			}
			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
			if tt.value.Rank() != tt.rank {
				t.Errorf("Expected rank %d, got %d", tt.rank, tt.value.Rank())
			}
		})
	}
}

func TestParseUrgency(t *testing.T) {
	u, err := ParseUrgency("  HIGH ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u != UrgencyHigh {
		t.Errorf("Expected high, got %s", u)
	}

	if _, err := ParseUrgency("critical"); !errors.Is(err, ErrInvalidUrgency) {
		t.Errorf("Expected ErrInvalidUrgency, got %v", err)
	}
	if Urgency("critical").Rank() != 0 {
		t.Errorf("Unknown urgency should rank 0")
	}
}

func TestCategoryOrder(t *testing.T) {
	expected := []Category{
		CategoryRespiratory,
		CategoryGastrointestinal,
		CategoryNeurological,
		CategoryMusculoskeletal,
		CategoryEmergency,
	}

	if len(Categories) != len(expected) {
		t.Fatalf("Expected %d categories, got %d", len(expected), len(Categories))
	}
	for i, c := range expected {
		if Categories[i] != c {
			t.Errorf("Position %d: expected %s, got %s", i, c, Categories[i])
		}
		if c.Order() != i {
			t.Errorf("Expected %s at order %d, got %d", c, i, c.Order())
		}
	}

	if Category("dermatological").Order() != -1 {
		t.Errorf("Unknown category should have order -1")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Respiratory")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c != CategoryRespiratory {
		t.Errorf("Expected respiratory, got %s", c)
	}

	if _, err := ParseCategory("cardiac"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("Expected ErrInvalidCategory, got %v", err)
	}
}

func TestModelSourceIsValid(t *testing.T) {
	for _, s := range []ModelSource{ModelSourceNone, ModelSourceFile, ModelSourceBootstrap, ModelSourceRemote} {
		if !s.IsValid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if ModelSource("onnx").IsValid() {
		t.Errorf("Expected onnx to be invalid")
	}
}
