package reference

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/symptom"
)

//go:embed defaults/tables.yaml
var defaultTables []byte

// rawTables mirrors the YAML document before validation.
type rawTables struct {
	Version         string              `yaml:"version"`
	Thresholds      Thresholds          `yaml:"thresholds"`
	Vocabulary      []string            `yaml:"vocabulary"`
	Weights         map[string]float64  `yaml:"weights"`
	Categories      map[string][]string `yaml:"categories"`
	CategoryAdvice  map[string][]string `yaml:"category_advice"`
	UrgencyAdvice   map[string][]string `yaml:"urgency_advice"`
	GeneralAdvice   []string            `yaml:"general_advice"`
	RiskTierAdvice  RiskTierAdvice      `yaml:"risk_tier_advice"`
	DiseaseWorkouts []DiseaseWorkouts   `yaml:"disease_workouts"`
}

// Load reads reference tables from a YAML file. An empty path loads the
// embedded default table set.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Parse(bytes.NewReader(defaultTables))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference tables: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Default returns the embedded default table set.
func Default() (*Tables, error) {
	return Load("")
}

// Parse decodes and validates a YAML reference document.
func Parse(r io.Reader) (*Tables, error) {
	var raw rawTables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode reference tables: %w", err)
	}
	return build(&raw)
}

func build(raw *rawTables) (*Tables, error) {
	if err := validateThresholds(raw.Thresholds); err != nil {
		return nil, err
	}

	if len(raw.Vocabulary) == 0 {
		return nil, errors.New("vocabulary must not be empty")
	}
	vocabulary := make([]string, 0, len(raw.Vocabulary))
	seen := make(map[string]bool, len(raw.Vocabulary))
	for _, entry := range raw.Vocabulary {
		id := symptom.Normalize(entry)
		if id == "" {
			return nil, fmt.Errorf("vocabulary entry %q normalizes to an empty identifier", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate vocabulary entry %q", id)
		}
		seen[id] = true
		vocabulary = append(vocabulary, id)
	}

	weights := make(map[string]float64, len(raw.Weights))
	for k, v := range raw.Weights {
		weights[symptom.Normalize(k)] = v
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}

	symptomCategory, err := buildSymptomCategories(raw.Categories)
	if err != nil {
		return nil, err
	}

	categoryAdvice := make(map[domain.Category][]string, len(raw.CategoryAdvice))
	for name, block := range raw.CategoryAdvice {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("category advice: %w", err)
		}
		if len(block) != BlockSize {
			return nil, fmt.Errorf("category advice for %s must have %d entries, got %d", c, BlockSize, len(block))
		}
		categoryAdvice[c] = cloneStrings(block)
	}

	urgencyAdvice := make(map[domain.Urgency][]string, len(raw.UrgencyAdvice))
	for name, list := range raw.UrgencyAdvice {
		u, err := domain.ParseUrgency(name)
		if err != nil {
			return nil, fmt.Errorf("urgency advice: %w", err)
		}
		urgencyAdvice[u] = cloneStrings(list)
	}
	for _, u := range []domain.Urgency{domain.UrgencyLow, domain.UrgencyModerate, domain.UrgencyHigh} {
		if len(urgencyAdvice[u]) == 0 {
			return nil, fmt.Errorf("urgency advice for %s is required", u)
		}
	}

	tiers := map[string][]string{
		"emergency": raw.RiskTierAdvice.Emergency,
		"moderate":  raw.RiskTierAdvice.Moderate,
		"low":       raw.RiskTierAdvice.Low,
	}
	for name, block := range tiers {
		if len(block) != BlockSize {
			return nil, fmt.Errorf("risk tier advice for %s must have %d entries, got %d", name, BlockSize, len(block))
		}
	}

	workouts := make([]DiseaseWorkouts, 0, len(raw.DiseaseWorkouts))
	for _, dw := range raw.DiseaseWorkouts {
		if strings.TrimSpace(dw.Disease) == "" {
			return nil, errors.New("disease workout entry without a disease name")
		}
		workouts = append(workouts, DiseaseWorkouts{
			Disease:  dw.Disease,
			Workouts: cloneStrings(dw.Workouts),
		})
	}

	return &Tables{
		version:         raw.Version,
		thresholds:      raw.Thresholds,
		vocabulary:      vocabulary,
		weights:         weights,
		symptomCategory: symptomCategory,
		categoryAdvice:  categoryAdvice,
		urgencyAdvice:   urgencyAdvice,
		generalAdvice:   cloneStrings(raw.GeneralAdvice),
		riskTierAdvice: RiskTierAdvice{
			Emergency: cloneStrings(raw.RiskTierAdvice.Emergency),
			Moderate:  cloneStrings(raw.RiskTierAdvice.Moderate),
			Low:       cloneStrings(raw.RiskTierAdvice.Low),
		},
		diseaseWorkouts: workouts,
	}, nil
}

// buildSymptomCategories flattens possibly overlapping category definitions
// into one category per symptom. Categories are visited in enumeration order
// and the first claim wins.
func buildSymptomCategories(defs map[string][]string) (map[string]domain.Category, error) {
	parsed := make(map[domain.Category][]string, len(defs))
	for name, members := range defs {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("categories: %w", err)
		}
		parsed[c] = members
	}

	out := make(map[string]domain.Category)
	for _, c := range domain.Categories {
		for _, member := range parsed[c] {
			id := symptom.Normalize(member)
			if _, claimed := out[id]; !claimed {
				out[id] = c
			}
		}
	}
	return out, nil
}

func validateThresholds(t Thresholds) error {
	if !(t.Moderate > 0 && t.Moderate < t.High && t.High < t.Emergency) {
		return fmt.Errorf("thresholds must be ascending and positive: moderate=%v high=%v emergency=%v",
			t.Moderate, t.High, t.Emergency)
	}
	if t.MaxRealisticScore <= 0 {
		return fmt.Errorf("max realistic score must be positive, got %v", t.MaxRealisticScore)
	}
	return nil
}

func validateWeights(weights map[string]float64) error {
	for k, v := range weights {
		if k == "" {
			return errors.New("weight table contains an empty symptom identifier")
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid weight %v for symptom %q", v, k)
		}
	}
	return nil
}

// LoadWeightsCSV reads a two-column symptom,weight table. A header row is
// detected by a non-numeric weight in the first record and skipped.
func LoadWeightsCSV(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	weights := make(map[string]float64)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read weights CSV: %w", err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("weights CSV line %d: expected 2 columns, got %d", line, len(record))
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("weights CSV line %d: invalid weight %q", line, record[1])
		}
		id := symptom.Normalize(record[0])
		if id == "" {
			return nil, fmt.Errorf("weights CSV line %d: empty symptom", line)
		}
		weights[id] = w
	}

	if len(weights) == 0 {
		return nil, errors.New("weights CSV contains no rows")
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// LoadWithWeights loads tables and, when weightsPath is set, replaces the
// weight table with the CSV at that path.
func LoadWithWeights(tablesPath, weightsPath string) (*Tables, error) {
	tables, err := Load(tablesPath)
	if err != nil {
		return nil, err
	}
	if weightsPath == "" {
		return tables, nil
	}

	f, err := os.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights CSV: %w", err)
	}
	defer f.Close()

	weights, err := LoadWeightsCSV(f)
	if err != nil {
		return nil, err
	}
	return tables.WithWeights(weights)
}
