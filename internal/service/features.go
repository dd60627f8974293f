package service

import (
	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/reference"
	"github.com/triage-risk-service/internal/symptom"
)

// FeatureBuilder encodes symptom sets against the registered vocabulary.
type FeatureBuilder struct {
	tables *reference.Tables
	index  map[string]int
	size   int
}

// NewFeatureBuilder indexes the vocabulary of tables.
func NewFeatureBuilder(tables *reference.Tables) *FeatureBuilder {
	vocab := tables.Vocabulary()
	index := make(map[string]int, len(vocab))
	for i, s := range vocab {
		index[s] = i
	}
	return &FeatureBuilder{tables: tables, index: index, size: len(vocab)}
}

// Build returns a binary vector with 1 at the position of every input
// symptom that is in the vocabulary. Symptoms are normalized first and
// unknown symptoms are ignored.
func (b *FeatureBuilder) Build(symptoms []string) domain.FeatureVector {
	vec := make(domain.FeatureVector, b.size)
	for _, s := range symptoms {
		if i, ok := b.index[symptom.Normalize(s)]; ok {
			vec[i] = 1
		}
	}
	return vec
}

// RawSeverity sums the weights of the distinct normalized symptoms. The input
// is treated as a set, so a symptom listed twice is weighted once. Symptoms
// outside the weight table contribute zero.
func (b *FeatureBuilder) RawSeverity(symptoms []string) float64 {
	var total float64
	for _, s := range distinct(symptom.NormalizeAll(symptoms)) {
		total += b.tables.Weight(s)
	}
	return total
}

// Size is the vector dimension.
func (b *FeatureBuilder) Size() int { return b.size }

// distinct keeps the first occurrence of each token.
func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
