// Package vector holds the similarity math used by library search.
package vector

import (
	"math"
	"sort"
)

// Cosine returns dot(a,b) / (|a| * |b|). Vectors of different length, empty
// vectors and zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Match is one scored candidate. Ref is opaque to this package.
type Match[T any] struct {
	Ref   T
	Score float64
}

// TopK keeps matches scoring strictly above threshold, orders them by score
// descending while preserving input order for ties, and returns at most k.
func TopK[T any](matches []Match[T], threshold float64, k int) []Match[T] {
	kept := make([]Match[T], 0, len(matches))
	for _, m := range matches {
		if m.Score > threshold {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if k >= 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
