package vectorstore

import (
	"cmp"
	"math"
	"slices"
)

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector. Callers ensure equal lengths.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// topK scores every candidate against query and keeps the best k. Ties
// keep candidate order.
func topK(query []float32, candidates []Record, k int) ([]Result, error) {
	results := make([]Result, 0, len(candidates))
	for _, rec := range candidates {
		if len(rec.Embedding) != len(query) {
			return nil, ErrDimensionMismatch
		}
		results = append(results, Result{Record: rec, Score: Cosine(query, rec.Embedding)})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func summarise(records []Record) []SourceInfo {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Source]++
	}
	out := make([]SourceInfo, 0, len(counts))
	for s, n := range counts {
		out = append(out, SourceInfo{Source: s, Chunks: n})
	}
	slices.SortFunc(out, func(a, b SourceInfo) int { return cmp.Compare(a.Source, b.Source) })
	return out
}
