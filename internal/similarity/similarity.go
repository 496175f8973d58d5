// Package similarity ranks embedding vectors by cosine similarity.
package similarity

import (
	"math"
	"sort"
)

// Candidate is a stored vector identified by the note it belongs to.
type Candidate struct {
	ID     string
	Vector []float32
}

type Match struct {
	ID    string
	Score float32
}

// Cosine returns dot(a,b)/(|a|*|b|). Vectors of different length, empty
// vectors and zero vectors score 0.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Rank scans every candidate, keeps those scoring at least threshold and
// returns them best first. topK <= 0 keeps all matches.
func Rank(query []float32, candidates []Candidate, threshold float32, topK int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, item := range candidates {
		score := Cosine(query, item.Vector)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{ID: item.ID, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
