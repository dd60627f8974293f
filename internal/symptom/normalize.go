// Package symptom canonicalizes free-text symptom tokens into the identifier
// space shared by the vocabulary, the weight table and the category table.
package symptom

import "strings"

var replacer = strings.NewReplacer(" ", "_", "-", "_", ".", "")

// Normalize trims surrounding whitespace, lowercases, turns internal spaces
// and hyphens into underscores and strips periods. It is total and idempotent:
// whitespace exposed by a stripped period is trimmed too.
func Normalize(token string) string {
	return strings.TrimSpace(replacer.Replace(strings.ToLower(strings.TrimSpace(token))))
}

// NormalizeAll normalizes every token, preserving order and dropping tokens
// that normalize to the empty string.
func NormalizeAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := Normalize(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Set returns the distinct normalized tokens as a lookup set.
func Set(normalized []string) map[string]struct{} {
	set := make(map[string]struct{}, len(normalized))
	for _, s := range normalized {
		set[s] = struct{}{}
	}
	return set
}
